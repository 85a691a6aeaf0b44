package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// initTestRepo creates a temporary git repo on branch main with one commit
// and returns its path.
func initTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	gitIn(t, dir, "init")
	gitIn(t, dir, "config", "user.email", "test@test.com")
	gitIn(t, dir, "config", "user.name", "Test")
	gitIn(t, dir, "checkout", "-b", "main")

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitIn(t, dir, "add", ".")
	gitIn(t, dir, "commit", "-m", "initial commit")
	return dir
}

func gitIn(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %s (%v)", args, out, err)
	}
}

func TestCurrentBranch(t *testing.T) {
	dir := initTestRepo(t)
	r := NewRunner(dir)

	branch, err := r.CurrentBranch()
	if err != nil {
		t.Fatal(err)
	}
	if branch != "main" {
		t.Errorf("got %q, want %q", branch, "main")
	}

	gitIn(t, dir, "checkout", "-b", "feat/agents")
	if branch, _ := r.CurrentBranch(); branch != "feat/agents" {
		t.Errorf("after checkout got %q, want feat/agents", branch)
	}
}

func TestLastCommit(t *testing.T) {
	dir := initTestRepo(t)
	r := NewRunner(dir)

	commit, err := r.LastCommit()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(commit, " initial commit") {
		t.Errorf("got %q, want <sha> initial commit", commit)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	gitIn(t, dir, "add", ".")
	gitIn(t, dir, "commit", "-m", "agent: add a")
	if commit, _ := r.LastCommit(); !strings.HasSuffix(commit, " agent: add a") {
		t.Errorf("got %q after agent commit", commit)
	}
}

func TestHasUncommittedChanges(t *testing.T) {
	dir := initTestRepo(t)
	r := NewRunner(dir)

	t.Run("clean repo", func(t *testing.T) {
		has, err := r.HasUncommittedChanges()
		if err != nil {
			t.Fatal(err)
		}
		if has {
			t.Error("expected no uncommitted changes")
		}
	})

	t.Run("dirty repo", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("dirty"), 0o644); err != nil {
			t.Fatal(err)
		}
		has, err := r.HasUncommittedChanges()
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			t.Error("expected uncommitted changes")
		}
	})
}

func TestIsRepo(t *testing.T) {
	dir := initTestRepo(t)
	sub := filepath.Join(dir, "pkg", "x")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	if !NewRunner(sub).IsRepo() {
		t.Error("expected subdirectory to be inside the repo")
	}
	if NewRunner(t.TempDir()).IsRepo() {
		t.Error("a plain temp dir is not a repo")
	}
}

func TestErrorPaths(t *testing.T) {
	r := NewRunner("/nonexistent/git/path")

	tests := []struct {
		name    string
		call    func() error
		wantMsg string
	}{
		{"CurrentBranch", func() error { _, err := r.CurrentBranch(); return err }, "git current branch"},
		{"LastCommit", func() error { _, err := r.LastCommit(); return err }, "git last commit"},
		{"HasUncommittedChanges", func() error { _, err := r.HasUncommittedChanges(); return err }, "git status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

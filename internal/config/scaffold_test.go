package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScaffoldProject(t *testing.T) {
	t.Run("creates everything in an empty directory", func(t *testing.T) {
		dir := t.TempDir()
		created, err := ScaffoldProject(dir)
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{FileName, "PROMPT.md", "REVIEW.md", "FIX.md", ".gitignore"} {
			if _, statErr := os.Stat(filepath.Join(dir, name)); statErr != nil {
				t.Errorf("%s not created: %v", name, statErr)
			}
		}
		if len(created) != 5 {
			t.Errorf("created %d paths, want 5: %v", len(created), created)
		}
		prompt, _ := os.ReadFile(filepath.Join(dir, "PROMPT.md"))
		if !strings.Contains(string(prompt), "NO_TASKS_AVAILABLE") {
			t.Error("loop prompt should tell agents how to signal completion")
		}
	})

	t.Run("leaves existing files alone", func(t *testing.T) {
		dir := t.TempDir()
		custom := filepath.Join(dir, "PROMPT.md")
		if err := os.WriteFile(custom, []byte("custom"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("bin/\n.swarm/\n"), 0644); err != nil {
			t.Fatal(err)
		}

		created, err := ScaffoldProject(dir)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range created {
			if p == custom || filepath.Base(p) == ".gitignore" {
				t.Errorf("unexpectedly touched %s", p)
			}
		}
		data, _ := os.ReadFile(custom)
		if string(data) != "custom" {
			t.Errorf("PROMPT.md overwritten: %q", data)
		}
	})

	t.Run("appends gitignore entry", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".gitignore")
		if err := os.WriteFile(path, []byte("bin/"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := ScaffoldProject(dir); err != nil {
			t.Fatal(err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != "bin/\n.swarm/\n" {
			t.Errorf(".gitignore = %q", data)
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := ScaffoldProject(dir); err != nil {
			t.Fatal(err)
		}
		created, err := ScaffoldProject(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(created) != 0 {
			t.Errorf("second run created %v", created)
		}
	})
}

package loop

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestProjectKey(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "one", "My API")
	b := filepath.Join(root, "two", "My API")

	ka := ProjectKey(a)
	if !strings.HasPrefix(ka, "my-api-") {
		t.Errorf("ProjectKey(%q) = %q, want my-api- prefix", a, ka)
	}
	if len(ka) != len("my-api-")+8 {
		t.Errorf("ProjectKey(%q) = %q, want 8 hex chars of hash", a, ka)
	}
	if ka != ProjectKey(a) {
		t.Error("ProjectKey is not deterministic")
	}
	if ka == ProjectKey(b) {
		t.Error("checkouts with the same name must get different keys")
	}
}

func TestAgentLogPath(t *testing.T) {
	got := AgentLogPath("/logs", "proj-1234abcd", "a1b2c3d4", 7, 2)
	want := filepath.Join("/logs", "proj-1234abcd", "a1b2c3d4-iter007-agent2.log")
	if got != want {
		t.Errorf("AgentLogPath = %q, want %q", got, want)
	}
	if lm := lastMessagePath(got, "dev"); lm != filepath.Join("/logs", "proj-1234abcd", "a1b2c3d4-iter007-agent2-dev.last.txt") {
		t.Errorf("lastMessagePath = %q", lm)
	}
}

package beads

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
)

const readyJSON = `[
  {"id":"bd-3","title":"Low priority","status":"open","priority":3},
  {"id":"bd-1","title":"Add login","status":"open","priority":1,"labels":["auth"]},
  {"id":"bd-2","title":"Taken","status":"in_progress","priority":0,"assignee":"alice"},
  {"id":"bd-4","title":"Also urgent","status":"open","priority":1}
]`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"list", readyJSON, 4, false},
		{"empty output", "", 0, false},
		{"whitespace", "  \n", 0, false},
		{"null", "null", 0, false},
		{"empty list", "[]", 0, false},
		{"not json", "No ready issues", 0, true},
		{"object not list", `{"id":"bd-1"}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("Parse returned %d beads, want %d", len(got), tt.want)
			}
		})
	}
}

func TestPick(t *testing.T) {
	beads, err := Parse([]byte(readyJSON))
	if err != nil {
		t.Fatal(err)
	}

	got := Pick(beads, 2)
	want := []runstate.Task{
		{ID: "bd-1", Title: "Add login", Priority: 1},
		{ID: "bd-4", Title: "Also urgent", Priority: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("Pick = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Pick[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if all := Pick(beads, 0); len(all) != 3 {
		t.Errorf("Pick(0) returned %d, want all 3 unassigned", len(all))
	}
}

func TestReady(t *testing.T) {
	var gotName string
	var gotArgs []string
	c := &Client{
		Dir: "/repo",
		run: func(_ context.Context, dir, name string, args ...string) ([]byte, error) {
			if dir != "/repo" {
				t.Errorf("dir = %q", dir)
			}
			gotName, gotArgs = name, args
			return []byte(readyJSON), nil
		},
	}

	tasks, err := c.Ready(context.Background(), 1)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if gotName != "bd" {
		t.Errorf("command = %q, want bd", gotName)
	}
	if strings.Join(gotArgs, " ") != "ready --json --limit 2" {
		t.Errorf("args = %q", gotArgs)
	}
	if len(tasks) != 1 || tasks[0].ID != "bd-1" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestReadyError(t *testing.T) {
	c := &Client{
		Command: "br",
		run: func(context.Context, string, string, ...string) ([]byte, error) {
			return nil, errors.New("no .beads directory")
		},
	}
	_, err := c.Ready(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "br ready --json") {
		t.Fatalf("expected wrapped command error, got %v", err)
	}
}

func TestReadyMissingBinary(t *testing.T) {
	c := New("swarm-no-such-bd-binary", t.TempDir())
	if _, err := c.Ready(context.Background(), 1); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

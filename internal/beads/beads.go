// Package beads picks ready work items from the beads (bd) issue tracker.
package beads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
)

// Bead is the subset of a `bd ready --json` record swarm uses.
type Bead struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
	Assignee string `json:"assignee"`
}

// Client runs the bd CLI in a project directory.
type Client struct {
	Command string // defaults to "bd"
	Dir     string

	// run executes the CLI; tests replace it.
	run func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// New creates a Client for dir.
func New(command, dir string) *Client {
	return &Client{Command: command, Dir: dir}
}

// Ready returns up to limit unassigned ready beads, highest priority
// (lowest number) first. It satisfies loop.TaskSource.
func (c *Client) Ready(ctx context.Context, limit int) ([]runstate.Task, error) {
	args := []string{"ready", "--json"}
	if limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit*2))
	}
	out, err := c.exec(ctx, args...)
	if err != nil {
		return nil, err
	}
	beads, err := Parse(out)
	if err != nil {
		return nil, err
	}
	return Pick(beads, limit), nil
}

// Parse decodes `bd ready --json` output. Empty output means no beads.
func Parse(data []byte) ([]Bead, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var beads []Bead
	if err := json.Unmarshal(data, &beads); err != nil {
		return nil, fmt.Errorf("beads: decode ready list: %w", err)
	}
	return beads, nil
}

// Pick orders beads by priority and returns up to limit unassigned ones as
// tasks. A non-positive limit returns them all.
func Pick(beads []Bead, limit int) []runstate.Task {
	sorted := make([]Bead, 0, len(beads))
	for _, b := range beads {
		if b.ID == "" || b.Assignee != "" {
			continue
		}
		sorted = append(sorted, b)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	tasks := make([]runstate.Task, len(sorted))
	for i, b := range sorted {
		tasks[i] = runstate.Task{ID: b.ID, Title: b.Title, Priority: b.Priority}
	}
	return tasks
}

func (c *Client) exec(ctx context.Context, args ...string) ([]byte, error) {
	name := c.Command
	if name == "" {
		name = "bd"
	}
	run := c.run
	if run == nil {
		run = runCommand
	}
	out, err := run(ctx, c.Dir, name, args...)
	if err != nil {
		return nil, fmt.Errorf("beads: %s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// runCommand executes a command and returns its stdout. Stderr is folded
// into the error.
func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

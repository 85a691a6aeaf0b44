package loop

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// maxLineBytes bounds a single line of agent output. Stream-JSON tools
// emit whole tool results on one line.
const maxLineBytes = 1 << 20

// Invocation is one run of an agent CLI.
type Invocation struct {
	Command string
	Args    []string
	Dir     string

	// LogPath, when set, receives a copy of every stdout line. The file is
	// appended to so retries and review runs share one log per agent.
	LogPath string

	// OnLine is called for every stdout line as it arrives.
	OnLine func(line string)
}

// Result is what an agent run produced.
type Result struct {
	Output   string
	Stderr   string
	ExitCode int
}

// Runner starts agent processes. ExecRunner is the production
// implementation; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// ExecRunner runs agents as subprocesses.
type ExecRunner struct {
	// Env is appended to the inherited environment.
	Env []string
}

// Run starts inv.Command and blocks until it exits. A non-zero exit is
// reported through Result.ExitCode, not as an error. When ctx is cancelled
// the process is killed and ctx.Err() is returned.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...)
	cmd.Dir = inv.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("runner: stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var logFile *os.File
	if inv.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(inv.LogPath), 0o755); err != nil {
			return Result{}, fmt.Errorf("runner: create log dir: %w", err)
		}
		logFile, err = os.OpenFile(inv.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return Result{}, fmt.Errorf("runner: open log: %w", err)
		}
		defer logFile.Close()
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("runner: start %s: %w", inv.Command, err)
	}

	var out strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		out.WriteString(line)
		out.WriteByte('\n')
		if logFile != nil {
			_, _ = logFile.WriteString(line + "\n")
		}
		if inv.OnLine != nil {
			inv.OnLine(line)
		}
	}
	if scanner.Err() != nil {
		// Keep the pipe drained so the child never blocks on a full buffer.
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	res := Result{
		Output: out.String(),
		Stderr: stderr.String(),
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, ctx.Err()
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("runner: wait %s: %w", inv.Command, waitErr)
	}
	return res, nil
}

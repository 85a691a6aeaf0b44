package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
)

// Ext is the file extension of session logs.
const Ext = ".jsonl"

// JSONL is a Store backed by an append-only JSONL file. Each line is a
// JSON-serialized loop.LogEntry. The file is synced after every Append.
//
// Session identity: "<unix-timestamp>-<uuid prefix>.jsonl". Names sort
// chronologically, which EnforceRetention and Sessions rely on.
//
// Preview entries are not persisted; the raw agent output lives in the
// per-agent log files named in each LogAgentStart entry.
type JSONL struct {
	file       *os.File
	mu         sync.Mutex
	idx        *fileIndex
	sessionID  string
	startedAt  time.Time
	pos        int64 // current write position in the file
	provider   string
	branch     string
	lastCommit string
}

// NewJSONL creates a new session log in dir. dir is created with
// os.MkdirAll if it does not exist.
func NewJSONL(dir string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %q: %w", dir, err)
	}
	now := time.Now()
	sessionID := fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8])
	path := filepath.Join(dir, sessionID+Ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	return &JSONL{
		file:      f,
		idx:       newFileIndex(),
		sessionID: sessionID,
		startedAt: now,
	}, nil
}

// OpenJSONL opens an existing session log read-only and rebuilds its
// index. Malformed lines are skipped. Append on the result fails.
func OpenJSONL(path string) (*JSONL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	j := &JSONL{
		file:      f,
		idx:       newFileIndex(),
		sessionID: strings.TrimSuffix(filepath.Base(path), Ext),
	}

	r := bufio.NewReader(f)
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			var e loop.LogEntry
			if err := json.Unmarshal(bytes.TrimSpace(line), &e); err != nil {
				log.Warn("store: skipping malformed line", "session", j.sessionID, "offset", j.pos, "err", err)
			} else {
				j.observe(e, j.pos, int64(len(line)))
			}
			j.pos += int64(len(line))
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			_ = f.Close()
			return nil, fmt.Errorf("store: read %q: %w", path, readErr)
		}
	}
	return j, nil
}

// Append serializes entry as a JSON line, writes it to the file, and syncs.
// It is safe to call from multiple goroutines.
func (j *JSONL) Append(entry loop.LogEntry) error {
	if entry.Kind == loop.LogPreview {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	lineOffset := j.pos
	if _, err := j.file.Write(data); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("store: sync: %w", err)
	}
	j.pos += int64(len(data))
	j.observe(entry, lineOffset, int64(len(data)))
	return nil
}

// observe folds one written line into the index and session metadata.
func (j *JSONL) observe(entry loop.LogEntry, offset, n int64) {
	j.idx.onAppend(entry, offset, n)
	if j.startedAt.IsZero() {
		j.startedAt = entry.Timestamp
	}
	if entry.Provider != "" {
		j.provider = entry.Provider
	}
	if entry.Branch != "" {
		j.branch = entry.Branch
	}
	if entry.Commit != "" {
		j.lastCommit = entry.Commit
	}
}

// Close closes the underlying file.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Path returns the session log file path.
func (j *JSONL) Path() string { return j.file.Name() }

// Iterations returns records for all completed iterations in this session.
// The returned slice is a copy and safe to mutate.
func (j *JSONL) Iterations() ([]IterationRecord, error) {
	j.mu.Lock()
	result := make([]IterationRecord, len(j.idx.records))
	copy(result, j.idx.records)
	j.mu.Unlock()
	return result, nil
}

// IterationLog returns the full event log for a completed iteration, reading
// from the JSONL file using the in-memory byte-offset index. Returns an error
// if iteration n has not completed (or was never started).
func (j *JSONL) IterationLog(n int) ([]loop.LogEntry, error) {
	j.mu.Lock()
	r, ok := j.idx.ranges[n]
	j.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("store: iteration %d not found", n)
	}
	size := r.end - r.start
	if size <= 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	if _, err := j.file.ReadAt(buf, r.start); err != nil {
		return nil, fmt.Errorf("store: read iteration %d: %w", n, err)
	}
	var entries []loop.LogEntry
	for _, line := range bytes.Split(buf, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var e loop.LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			log.Warn("store: skipping malformed line", "iteration", n, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SessionSummary returns metadata about the session derived from the
// in-memory iteration index.
func (j *JSONL) SessionSummary() (SessionSummary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := SessionSummary{
		SessionID:  j.sessionID,
		StartedAt:  j.startedAt,
		Provider:   j.provider,
		Iterations: len(j.idx.records),
		LastCommit: j.lastCommit,
		Branch:     j.branch,
	}
	for _, r := range j.idx.records {
		s.Usage = s.Usage.Add(r.Usage)
		s.Retries += r.Retries
		if r.Outcome == "failed" {
			s.Failed++
		}
	}
	return s, nil
}

// Sessions returns the session log paths in dir, newest first. It returns
// nil if dir does not exist.
func Sessions(dir string) ([]string, error) {
	names, err := sessionFiles(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[len(names)-1-i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// EnforceRetention removes the oldest session log files in dir, keeping at most
// maxKeep files. If maxKeep is 0, no files are removed. Returns nil if dir does
// not exist or is empty.
func EnforceRetention(dir string, maxKeep int) error {
	if maxKeep <= 0 {
		return nil
	}
	files, err := sessionFiles(dir)
	if err != nil {
		return err
	}
	toDelete := len(files) - maxKeep
	for i := 0; i < toDelete; i++ {
		path := filepath.Join(dir, files[i])
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("store: remove %q: %w", path, err)
		}
	}
	return nil
}

// sessionFiles lists session log names in dir, oldest first.
func sessionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files) // timestamp-prefixed names sort chronologically
	return files, nil
}

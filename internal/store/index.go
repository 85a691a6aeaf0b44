package store

import "github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"

// iterRange is the [start, end) byte range of one iteration in the JSONL file.
// start is the offset of the LogIterStart line; end is the offset of the first
// byte after the LogIterComplete line.
type iterRange struct {
	start int64
	end   int64
}

// fileIndex maintains in-memory byte-offset bookmarks per completed iteration.
// It is updated by onAppend as each LogEntry is written (or replayed by
// OpenJSONL) and backs IterationLog reads via file.ReadAt.
type fileIndex struct {
	records []IterationRecord // ordered by completion time
	ranges  map[int]iterRange // iteration Number → byte range
	pending *pendingIter      // open iteration being built (nil if none)
}

type pendingIter struct {
	startOffset int64
	record      IterationRecord
}

func newFileIndex() *fileIndex {
	return &fileIndex{ranges: make(map[int]iterRange)}
}

// onAppend updates the index for a line of lineLen bytes written at
// lineOffset.
func (idx *fileIndex) onAppend(entry loop.LogEntry, lineOffset, lineLen int64) {
	switch entry.Kind {
	case loop.LogIterStart:
		idx.pending = &pendingIter{
			startOffset: lineOffset,
			record: IterationRecord{
				Number:  entry.Iteration,
				StartAt: entry.Timestamp,
			},
		}
	case loop.LogAgentStart:
		if idx.pending != nil && entry.Iteration == idx.pending.record.Number {
			idx.pending.record.Agents++
		}
	case loop.LogRetry:
		if idx.pending != nil && entry.Iteration == idx.pending.record.Number {
			idx.pending.record.Retries++
		}
	case loop.LogIterComplete:
		if idx.pending == nil {
			return
		}
		r := idx.pending.record
		r.Duration = entry.Duration
		r.Outcome = entry.Outcome
		r.Stop = entry.Stop
		r.Commit = entry.Commit
		r.EndAt = entry.Timestamp
		if entry.Usage != nil {
			r.Usage = *entry.Usage
		}
		idx.ranges[r.Number] = iterRange{
			start: idx.pending.startOffset,
			end:   lineOffset + lineLen,
		}
		idx.records = append(idx.records, r)
		idx.pending = nil
	}
}

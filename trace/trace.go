// Package trace implements an append-only, daily-rotating text journal,
// grounded on the teacher's trace archival's rotation-policy shape
// (tracing/archival.go's day-bucketed ArchiveAfterDays/DeleteAfterDays
// config pattern), adapted from distributed-span S3/Glacier archival down
// to a plain local-filesystem daily text journal — no tiering, no cloud
// SDK, per this repository's file/filesystem-only transport decision.
package trace

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Config configures a Traces journal. Zero-value Root/Suffix/CompressedSuffix
// fall back to the defaults below; an empty Dir uses each entry's Category,
// and an empty Prefix stays empty.
type Config struct {
	Root             string // default "traces"
	Dir              string // default: the entry's Category
	Prefix           string
	Suffix           string // default ".txt"
	Disabled         bool
	Compressed       bool
	CompressedSuffix string // default ".txt.gz"
}

func (c Config) withDefaults() Config {
	if c.Root == "" {
		c.Root = "traces"
	}
	if c.Suffix == "" {
		c.Suffix = ".txt"
	}
	if c.CompressedSuffix == "" {
		c.CompressedSuffix = ".txt.gz"
	}
	return c
}

// Entry is one time-stamped, categorized textual journal line.
type Entry struct {
	Category string
	Stamp    time.Time
	Text     string
}

// Listener hooks observe or veto trace lifecycle events; any hook
// returning an error on OnAddTrace drops that entry.
type Listener struct {
	OnAddTrace       func(Entry) error
	OnCommitTraces   func([]Entry) error
	OnRollbackTraces func([]Entry)
}

// Traces is a thread-safe append-only journal rotated by calendar day
// (UTC). Add accumulates into a buffered channel; Commit drains it under a
// write lock, opening/closing the daily file on midnight crossings;
// Rollback discards unwritten entries.
type Traces struct {
	cfg      Config
	enabled  atomic.Bool
	pending  chan Entry
	listener Listener

	mu        sync.Mutex
	openFile  *os.File
	gzWriter  *gzip.Writer
	openDate  string
	openCat   string
}

// New returns a Traces journal. Disabled configs still accept Add calls
// (dropped without being queued) so callers need not branch on
// Config.Disabled.
func New(cfg Config, listener Listener) *Traces {
	cfg = cfg.withDefaults()
	t := &Traces{cfg: cfg, pending: make(chan Entry, 256), listener: listener}
	t.enabled.Store(!cfg.Disabled)
	return t
}

// Enabled reports whether new entries are accepted.
func (t *Traces) Enabled() bool { return t.enabled.Load() }

// SetEnabled toggles acceptance of new entries.
func (t *Traces) SetEnabled(enabled bool) { t.enabled.Store(enabled) }

// Add queues e for the next Commit. A listener veto drops it silently
// (the caller already decided to trace; a veto is a policy override, not
// an error the caller must handle).
func (t *Traces) Add(e Entry) {
	if !t.enabled.Load() {
		return
	}
	if t.listener.OnAddTrace != nil {
		if err := t.listener.OnAddTrace(e); err != nil {
			return
		}
	}
	select {
	case t.pending <- e:
	default:
		// Buffer full: drop rather than block the caller, matching the
		// append-only/best-effort nature of a trace journal.
	}
}

// Commit drains all pending entries, writing each to its category's daily
// file (opening a fresh file when the entry's UTC date changes from the
// currently open one).
func (t *Traces) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var drained []Entry
	for {
		select {
		case e := <-t.pending:
			drained = append(drained, e)
		default:
			goto drainedAll
		}
	}
drainedAll:
	if len(drained) == 0 {
		return nil
	}
	for _, e := range drained {
		if err := t.writeEntry(e); err != nil {
			return err
		}
	}
	if t.listener.OnCommitTraces != nil {
		if err := t.listener.OnCommitTraces(drained); err != nil {
			return err
		}
	}
	return nil
}

// Rollback discards any entries queued but not yet committed.
func (t *Traces) Rollback() {
	var discarded []Entry
	for {
		select {
		case e := <-t.pending:
			discarded = append(discarded, e)
		default:
			if t.listener.OnRollbackTraces != nil {
				t.listener.OnRollbackTraces(discarded)
			}
			return
		}
	}
}

// Close closes any currently open file.
func (t *Traces) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeOpenLocked()
}

func (t *Traces) writeEntry(e Entry) error {
	date := e.Stamp.UTC().Format("2006-01-02")
	if date != t.openDate || e.Category != t.openCat || t.openFile == nil {
		if err := t.closeOpenLocked(); err != nil {
			return err
		}
		if err := t.openLocked(e.Category, date); err != nil {
			return err
		}
	}
	line := fmt.Sprintf("%s %s\n", e.Stamp.UTC().Format(time.RFC3339Nano), e.Text)
	var w interface{ Write([]byte) (int, error) }
	if t.gzWriter != nil {
		w = t.gzWriter
	} else {
		w = t.openFile
	}
	_, err := w.Write([]byte(line))
	return err
}

func (t *Traces) openLocked(category, date string) error {
	dir := filepath.Join(t.cfg.Root, firstNonEmpty(t.cfg.Dir, category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("trace: create directory %s: %w", dir, err)
	}
	suffix := t.cfg.Suffix
	if t.cfg.Compressed {
		suffix = t.cfg.CompressedSuffix
	}
	path := filepath.Join(dir, t.cfg.Prefix+date+suffix)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("trace: open %s: %w", path, err)
	}
	t.openFile = f
	t.openDate = date
	t.openCat = category
	if t.cfg.Compressed {
		t.gzWriter = gzip.NewWriter(f)
	}
	return nil
}

func (t *Traces) closeOpenLocked() error {
	if t.gzWriter != nil {
		if err := t.gzWriter.Close(); err != nil {
			return err
		}
		t.gzWriter = nil
	}
	if t.openFile != nil {
		if err := t.openFile.Close(); err != nil {
			return err
		}
		t.openFile = nil
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

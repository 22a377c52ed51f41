// Package opstate tracks the lifecycle of in-flight and recently-completed
// batch runs, adapted from the teacher's statemanager.Manager
// (statemanager/manager.go, operation.go): the same capacity-bounded
// in-memory map with oldest-eviction, re-scoped from generic service
// operations to processor batch runs keyed by a batch ID.
package opstate

import (
	"sync"
	"time"
)

// Status is the lifecycle stage of a tracked batch run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// BatchState records one tracked Driver.Process invocation.
type BatchState struct {
	ID          string                 `json:"id"`
	NoticeCount int                    `json:"notice_count"`
	Status      Status                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Duration    string                 `json:"duration,omitempty"`
	UpdateCount int                    `json:"update_count,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Stats is aggregated across all tracked batches.
type Stats struct {
	TotalBatches    int            `json:"total_batches"`
	ByStatus        map[Status]int `json:"by_status"`
	AverageDuration string         `json:"average_duration,omitempty"`
}

// Config configures a Tracker.
type Config struct {
	MaxBatches int // default 1000
}

// Tracker is a thread-safe, capacity-bounded map of batch run states.
type Tracker struct {
	mu         sync.RWMutex
	batches    map[string]*BatchState
	maxBatches int
}

// New returns a Tracker.
func New(cfg Config) *Tracker {
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = 1000
	}
	return &Tracker{
		batches:    make(map[string]*BatchState),
		maxBatches: cfg.MaxBatches,
	}
}

// Start records a new running batch, evicting the oldest tracked batch if
// at capacity.
func (t *Tracker) Start(id string, noticeCount int, metadata map[string]interface{}) *BatchState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.batches) >= t.maxBatches {
		t.evictOldest()
	}

	b := &BatchState{
		ID:          id,
		NoticeCount: noticeCount,
		Status:      StatusRunning,
		StartedAt:   time.Now(),
		Metadata:    metadata,
	}
	t.batches[id] = b
	return b
}

// Complete marks a batch finished, recording the update count on success
// or the error on failure.
func (t *Tracker) Complete(id string, updateCount int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.batches[id]
	if !ok {
		return
	}
	now := time.Now()
	b.CompletedAt = &now
	b.Duration = now.Sub(b.StartedAt).String()
	if err != nil {
		b.Status = StatusFailed
		b.Error = err.Error()
	} else {
		b.Status = StatusCompleted
		b.UpdateCount = updateCount
	}
}

// Get returns a copy of the tracked batch state, or nil if unknown.
func (t *Tracker) Get(id string) *BatchState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.batches[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

// List returns copies of every tracked batch state.
func (t *Tracker) List() []*BatchState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*BatchState, 0, len(t.batches))
	for _, b := range t.batches {
		cp := *b
		out = append(out, &cp)
	}
	return out
}

// Stats returns aggregated counts across all tracked batches.
func (t *Tracker) Stats() *Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := &Stats{
		TotalBatches: len(t.batches),
		ByStatus:     make(map[Status]int),
	}
	var totalDuration time.Duration
	var completedCount int
	for _, b := range t.batches {
		s.ByStatus[b.Status]++
		if b.CompletedAt != nil {
			totalDuration += b.CompletedAt.Sub(b.StartedAt)
			completedCount++
		}
	}
	if completedCount > 0 {
		s.AverageDuration = (totalDuration / time.Duration(completedCount)).String()
	}
	return s
}

// evictOldest removes the oldest tracked batch. Caller must hold the lock.
func (t *Tracker) evictOldest() {
	var oldestID string
	var oldestTime time.Time
	for id, b := range t.batches {
		if oldestID == "" || b.StartedAt.Before(oldestTime) {
			oldestID = id
			oldestTime = b.StartedAt
		}
	}
	if oldestID != "" {
		delete(t.batches, oldestID)
	}
}

package batch

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evalgo/rvpf/value"
)

// MemoryLimitError signals that installing notices (or continuing to
// accumulate work) would exceed the batch's memory budget; the driver
// halves its input and retries, mirroring the teacher's worker-pool
// retry-on-failure loop generalized from a single job to a notice slice.
type MemoryLimitError struct {
	Limit int
	Have  int
}

func (e *MemoryLimitError) Error() string {
	return fmt.Sprintf("batch: memory limit exceeded (have %d, limit %d)", e.Have, e.Limit)
}

// ValueFetcher is the store-access seam a Batch uses to satisfy a cache
// miss; the processor driver supplies a concrete implementation backed by
// metadata.Store-bound plugins.
type ValueFetcher interface {
	FetchPointValue(point value.PointHandle, stamp time.Time) (value.PointValue, bool, error)
}

// StoreAccessError wraps a ValueFetcher failure; the driver aborts the
// whole batch on this, distinct from a per-result compute failure which
// only drops that one result.
type StoreAccessError struct {
	Point uuid.UUID
	Err   error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("batch: store access failed for point %s: %v", e.Point, e.Err)
}

func (e *StoreAccessError) Unwrap() error { return e.Err }

// Signal is one side-channel notification queued for the service host.
type Signal struct {
	Name string
	Info any
}

// Batch holds all per-invocation scratch state: value cache, pending
// store-query coalescing, update queue, result de-duplication, look-up
// pass counter, cutoff, and signal queue.
type Batch struct {
	cache     *ValueCache
	updates   *UpdateQueue
	results   *ResultSet
	fetcher   ValueFetcher
	maxMemory int

	lookupPass int
	cutoff     time.Time
	hasCutoff  bool

	pendingQueries map[uuid.UUID]Query
	signals        []Signal
}

// New returns a fresh Batch. maxMemory <= 0 means unbounded (AcceptNotices
// never raises MemoryLimitError).
func New(fetcher ValueFetcher, maxMemory int) *Batch {
	return &Batch{
		cache:          NewValueCache(),
		updates:        NewUpdateQueue(),
		results:        NewResultSet(),
		fetcher:        fetcher,
		maxMemory:      maxMemory,
		lookupPass:     1,
		pendingQueries: map[uuid.UUID]Query{},
	}
}

// SetCutoff installs an absolute time past which the batch refuses to
// generate triggers — how wall-clock-driven systems enforce a "compute up
// to time T" policy.
func (b *Batch) SetCutoff(t time.Time) {
	b.cutoff = t
	b.hasCutoff = true
}

// CutoffTime implements behavior.Context.
func (b *Batch) CutoffTime() (time.Time, bool) { return b.cutoff, b.hasCutoff }

// PastCutoff reports whether stamp falls after the configured cutoff.
func (b *Batch) PastCutoff(stamp time.Time) bool {
	return b.hasCutoff && stamp.After(b.cutoff)
}

// AcceptNotices copies notices into the cache (subject to the cutoff) and
// returns a MemoryLimitError if doing so would exceed the configured
// budget — the driver halves its input slice and retries on this error.
func (b *Batch) AcceptNotices(notices []value.PointValue) error {
	if b.maxMemory > 0 && len(notices) > b.maxMemory {
		return &MemoryLimitError{Limit: b.maxMemory, Have: len(notices)}
	}
	for _, n := range notices {
		if b.PastCutoff(n.Stamp()) {
			continue
		}
		h, ok := n.Point().Handle()
		if !ok {
			continue
		}
		b.cache.Put(h.PointUUID(), n)
	}
	return nil
}

// GetPointValue implements behavior.Context: a cache lookup that, on a
// miss, coalesces a store-query request rather than fetching immediately
// (fetches are flushed by FlushQueries at the phase boundary, satisfying
// "an input is fetched at most once per (point, interval, sync) query").
func (b *Batch) GetPointValue(point value.PointHandle, stamp time.Time, interval time.Duration, notNull, interpolated, extrapolated bool) (value.PointValue, bool) {
	q := Query{Point: point.PointUUID(), Stamp: stamp, Interval: interval, NotNull: notNull, Interpolated: interpolated, Extrapolated: extrapolated}
	if v, ok := b.cache.Best(q); ok {
		return v, true
	}
	b.AddStoreValuesQuery(point, q)
	return value.PointValue{}, false
}

// AddStoreValuesQuery records a pending store fetch for point, coalescing
// overlapping queries (a later, wider query for the same point replaces a
// narrower pending one).
func (b *Batch) AddStoreValuesQuery(point value.PointHandle, q Query) {
	id := point.PointUUID()
	existing, has := b.pendingQueries[id]
	if !has || q.Interval > existing.Interval {
		b.pendingQueries[id] = q
	}
}

// FlushQueries issues every pending store query through the configured
// ValueFetcher and installs the results into the cache. Returns a
// StoreAccessError on the first fetch failure, aborting the whole batch.
func (b *Batch) FlushQueries() error {
	if b.fetcher == nil {
		b.pendingQueries = map[uuid.UUID]Query{}
		return nil
	}
	for id, q := range b.pendingQueries {
		handle, ok := b.resolveHandle(id)
		if !ok {
			continue
		}
		v, found, err := b.fetcher.FetchPointValue(handle, q.Stamp)
		if err != nil {
			return &StoreAccessError{Point: id, Err: err}
		}
		if found {
			b.cache.Put(id, v)
		}
	}
	b.pendingQueries = map[uuid.UUID]Query{}
	return nil
}

// resolveHandle recovers a value.PointHandle for a point already present
// in the cache, since the batch itself does not own the metadata arena.
func (b *Batch) resolveHandle(id uuid.UUID) (value.PointHandle, bool) {
	for _, v := range b.cache.All(id) {
		if h, ok := v.Point().Handle(); ok {
			return h, true
		}
	}
	return nil, false
}

// ScheduleUpdate implements behavior.Context: enqueue v for flush.
func (b *Batch) ScheduleUpdate(v value.PointValue) {
	b.updates.Schedule(v)
}

// SetUpResultValue registers/returns the de-duplicated ResultValue.
func (b *Batch) SetUpResultValue(preMade value.PointValue) value.PointValue {
	return b.results.SetUpResultValue(preMade)
}

// ReplaceResultValue substitutes the registered ResultValue for newValue's
// identity.
func (b *Batch) ReplaceResultValue(newValue value.PointValue) {
	b.results.ReplaceResultValue(newValue)
}

// Results returns every registered ResultValue in registration order.
func (b *Batch) Results() []value.PointValue { return b.results.All() }

// Result returns the currently registered ResultValue matching v's
// (point, stamp) identity, reflecting any inputs a prior Select call in
// this same pass has already appended via ReplaceResultValue.
func (b *Batch) Result(v value.PointValue) (value.PointValue, bool) {
	return b.results.Get(v)
}

// PendingQueryCount reports how many store queries are currently queued,
// letting the driver tell whether a look-up pass actually asked for new
// data worth waiting on before looping again.
func (b *Batch) PendingQueryCount() int { return len(b.pendingQueries) }

// LookupPass implements behavior.Context: the current retry pass counter,
// starting at 1.
func (b *Batch) LookupPass() int { return b.lookupPass }

// AdvancePass increments the look-up pass counter, called by the driver
// between retry passes so behaviors can throttle repeated work.
func (b *Batch) AdvancePass() { b.lookupPass++ }

// Signal implements behavior.Context: queue a side-channel notification
// drained by the processor driver into the update sink's side-channel
// topic after each batch — grounded on the teacher's WebSocket
// coordinator's SendProgress/SendError pattern, generalized to a
// transport-agnostic channel.
func (b *Batch) Signal(name string, info any) {
	b.signals = append(b.signals, Signal{Name: name, Info: info})
}

// DrainSignals returns and clears the queued signals.
func (b *Batch) DrainSignals() []Signal {
	out := b.signals
	b.signals = nil
	return out
}

// Flush drains the update queue in (point, stamp) order.
func (b *Batch) Flush() []value.PointValue {
	return b.updates.Flush()
}

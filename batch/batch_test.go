package batch

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/rvpf/value"
)

type stubHandle struct {
	id   uuid.UUID
	name string
}

func (s stubHandle) PointUUID() uuid.UUID { return s.id }
func (s stubHandle) PointName() string    { return s.name }

type stubFetcher struct {
	values map[uuid.UUID]value.PointValue
	err    error
}

func (f *stubFetcher) FetchPointValue(point value.PointHandle, stamp time.Time) (value.PointValue, bool, error) {
	if f.err != nil {
		return value.PointValue{}, false, f.err
	}
	v, ok := f.values[point.PointUUID()]
	return v, ok, nil
}

func TestBatch_AcceptNoticesRejectsOverMemoryLimit(t *testing.T) {
	b := New(nil, 1)
	notices := []value.PointValue{
		value.New(value.RefByName("a"), time.Now(), 1),
		value.New(value.RefByName("b"), time.Now(), 2),
	}
	err := b.AcceptNotices(notices)
	var memErr *MemoryLimitError
	assert.ErrorAs(t, err, &memErr)
}

func TestBatch_AcceptNoticesSkipsPastCutoff(t *testing.T) {
	b := New(nil, 0)
	now := time.Now()
	b.SetCutoff(now)

	handle := stubHandle{id: uuid.New(), name: "p"}
	ref := value.RefResolved(handle)
	past := value.New(ref, now.Add(time.Hour), 1)
	require.NoError(t, b.AcceptNotices([]value.PointValue{past}))

	_, ok := b.GetPointValue(handle, now.Add(time.Hour), 0, false, false, false)
	assert.False(t, ok, "a notice past the cutoff must not be cached")
}

func TestBatch_GetPointValueCoalescesStoreQuery(t *testing.T) {
	id := uuid.New()
	handle := stubHandle{id: id, name: "p"}
	seedStamp := time.Now().Add(-time.Hour)
	stamp := time.Now()
	fetcher := &stubFetcher{values: map[uuid.UUID]value.PointValue{
		id: value.New(value.RefResolved(handle), stamp, 7.0),
	}}
	b := New(fetcher, 0)
	// resolveHandle recovers a point's handle from a value already seen this
	// batch, so a query against a brand-new point needs a prior notice.
	require.NoError(t, b.AcceptNotices([]value.PointValue{value.New(value.RefResolved(handle), seedStamp, 0.0)}))

	_, ok := b.GetPointValue(handle, stamp, 0, false, false, false)
	assert.False(t, ok, "a cache miss must not fetch synchronously")

	require.NoError(t, b.FlushQueries())

	got, ok := b.GetPointValue(handle, stamp, 0, false, false, false)
	require.True(t, ok)
	assert.Equal(t, 7.0, got.Value())
}

func TestBatch_FlushQueriesPropagatesFetchError(t *testing.T) {
	id := uuid.New()
	handle := stubHandle{id: id, name: "p"}
	fetcher := &stubFetcher{err: errors.New("store down")}
	b := New(fetcher, 0)
	require.NoError(t, b.AcceptNotices([]value.PointValue{value.New(value.RefResolved(handle), time.Now().Add(-time.Hour), 0.0)}))

	b.GetPointValue(handle, time.Now(), 0, false, false, false)

	err := b.FlushQueries()
	var storeErr *StoreAccessError
	assert.ErrorAs(t, err, &storeErr)
}

func TestBatch_ScheduleAndFlushUpdates(t *testing.T) {
	b := New(nil, 0)
	b.ScheduleUpdate(value.New(value.RefByName("a"), time.Now(), 1))
	out := b.Flush()
	require.Len(t, out, 1)
	assert.Empty(t, b.Flush(), "flush must drain the queue, leaving nothing for a second call")
}

func TestBatch_SignalsQueueAndDrain(t *testing.T) {
	b := New(nil, 0)
	b.Signal("progress", 50)
	signals := b.DrainSignals()
	require.Len(t, signals, 1)
	assert.Equal(t, "progress", signals[0].Name)
	assert.Empty(t, b.DrainSignals())
}

func TestBatch_AdvancePassIncrementsLookupPass(t *testing.T) {
	b := New(nil, 0)
	assert.Equal(t, 1, b.LookupPass())
	b.AdvancePass()
	assert.Equal(t, 2, b.LookupPass())
}

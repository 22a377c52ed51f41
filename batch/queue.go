package batch

import (
	"container/heap"
	"time"

	"github.com/evalgo/rvpf/value"
)

// disabledStamp is a fixed, never-naturally-occurring instant used to mark
// the DisabledUpdate sentinel; real notices always carry wall-clock
// stamps, so this value (the zero time, shifted by the type's own package
// epoch marker) never collides with one.
var disabledStamp = time.Date(1, time.January, 1, 0, 0, 0, 1, time.UTC)

// UpdateQueue orders scheduled updates by (point identity, stamp) — the
// PointEventComparator total order the batch engine relies on for
// deterministic flush output — using container/heap the way the teacher's
// worker pool orders job retries by priority.
type UpdateQueue struct {
	items updateHeap
}

// NewUpdateQueue returns an empty UpdateQueue.
func NewUpdateQueue() *UpdateQueue {
	q := &UpdateQueue{}
	heap.Init(&q.items)
	return q
}

// Schedule inserts v in (point, stamp) order. A DisabledUpdate sentinel
// (see Disabled) means "suppress output for this pass" and is still
// enqueued so flush can filter it out, keeping slot accounting simple.
func (q *UpdateQueue) Schedule(v value.PointValue) {
	heap.Push(&q.items, v)
}

// Len reports the number of pending updates.
func (q *UpdateQueue) Len() int { return q.items.Len() }

// Flush drains the queue in order, dropping Disabled sentinels.
func (q *UpdateQueue) Flush() []value.PointValue {
	out := make([]value.PointValue, 0, q.items.Len())
	for q.items.Len() > 0 {
		v := heap.Pop(&q.items).(value.PointValue)
		if isDisabled(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Disabled returns the sentinel PointValue meaning "suppress output for
// this pass" when scheduled in place of a real update.
func Disabled() value.PointValue {
	return disabledSentinel
}

var disabledSentinel = value.NewNull(value.PointRef{}, disabledStamp)

func isDisabled(v value.PointValue) bool {
	return v.IsNull() && v.Stamp().Equal(disabledStamp)
}

type updateHeap []value.PointValue

func (h updateHeap) Len() int { return len(h) }

func (h updateHeap) Less(i, j int) bool {
	ki, kj := h[i].Point().Key(), h[j].Point().Key()
	if ki != kj {
		return ki < kj
	}
	return h[i].Stamp().Before(h[j].Stamp())
}

func (h updateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *updateHeap) Push(x any) { *h = append(*h, x.(value.PointValue)) }

func (h *updateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

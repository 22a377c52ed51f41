// Package batch implements the per-batch scratch state: a value cache, a
// store-query coalescer, an update queue, and result-value de-duplication,
// grounded on the teacher's worker-pool dequeue lifecycle (worker/pool.go)
// for the batch's accept/process/flush shape and on the coordinator's
// progress/signal pattern (coordinator/coordinator.go) for the side-channel
// signal queue.
package batch

import (
	"time"

	"github.com/google/uuid"

	"github.com/evalgo/rvpf/value"
)

type cacheKey struct {
	point uuid.UUID
	stamp int64 // UnixNano, so the zero key is distinguishable from a real stamp
}

func keyOf(point uuid.UUID, stamp time.Time) cacheKey {
	return cacheKey{point: point, stamp: stamp.UnixNano()}
}

// ValueCache holds the batch's known PointValues keyed by (pointUUID,
// stamp), plus a best-match query path for "nearest known value" lookups
// used when a behavior asks for an interpolated/extrapolated input.
type ValueCache struct {
	byKey   map[cacheKey]value.PointValue
	byPoint map[uuid.UUID][]value.PointValue // unsorted per-point index for range scans
}

// NewValueCache returns an empty ValueCache.
func NewValueCache() *ValueCache {
	return &ValueCache{byKey: map[cacheKey]value.PointValue{}, byPoint: map[uuid.UUID][]value.PointValue{}}
}

// Put inserts or overwrites a cached value.
func (c *ValueCache) Put(point uuid.UUID, v value.PointValue) {
	k := keyOf(point, v.Stamp())
	if _, exists := c.byKey[k]; !exists {
		c.byPoint[point] = append(c.byPoint[point], v)
	} else {
		for i, existing := range c.byPoint[point] {
			if existing.Stamp().Equal(v.Stamp()) {
				c.byPoint[point][i] = v
				break
			}
		}
	}
	c.byKey[k] = v
}

// Exact returns the cached value for exactly (point, stamp).
func (c *ValueCache) Exact(point uuid.UUID, stamp time.Time) (value.PointValue, bool) {
	v, ok := c.byKey[keyOf(point, stamp)]
	return v, ok
}

// Query describes a GetPointValue lookup: an exact stamp plus how far
// around it (interval) a best-match value may be drawn from, and whether
// Null/interpolated/extrapolated matches are acceptable.
type Query struct {
	Point         uuid.UUID
	Stamp         time.Time
	Interval      time.Duration
	NotNull       bool
	Interpolated  bool
	Extrapolated  bool
}

// Best returns the closest cached value to the query's stamp within
// Interval, honoring NotNull. Exact matches always win; the nearest
// neighbor within the interval is used otherwise (interpolated — "between
// two known samples" — and extrapolated — "before the earliest or after
// the latest known sample" — are both represented by this neighbor scan
// since the cache only sees what this batch has already materialized).
func (c *ValueCache) Best(q Query) (value.PointValue, bool) {
	if exact, ok := c.Exact(q.Point, q.Stamp); ok {
		if !q.NotNull || !exact.IsNull() {
			return exact, true
		}
	}
	candidates := c.byPoint[q.Point]
	var best value.PointValue
	haveBest := false
	bestDelta := q.Interval
	for _, v := range candidates {
		if q.NotNull && v.IsNull() {
			continue
		}
		delta := v.Stamp().Sub(q.Stamp)
		if delta < 0 {
			delta = -delta
		}
		if q.Interval > 0 && delta > q.Interval {
			continue
		}
		before := !v.Stamp().After(q.Stamp)
		if before && !q.Extrapolated && !v.Stamp().Equal(q.Stamp) {
			// value lies strictly before the query stamp: only usable when
			// extrapolation or interpolation is allowed.
			if !q.Interpolated {
				continue
			}
		}
		if !haveBest || delta < bestDelta {
			best, bestDelta, haveBest = v, delta, true
		}
	}
	return best, haveBest
}

// All returns every cached value for point, unordered.
func (c *ValueCache) All(point uuid.UUID) []value.PointValue {
	return c.byPoint[point]
}

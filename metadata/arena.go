package metadata

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
)

// Arena owns the Points by contiguous index, per the arena-indexing
// redesign: lookups by UUID/name are map-based, but iteration and sort
// order run over the index slice directly.
type Arena struct {
	points []*Point
	byUUID map[uuid.UUID]*Point
	byName map[string]*Point

	frozen atomic.Bool
}

// NewArena returns an empty, unfrozen Arena.
func NewArena() *Arena {
	return &Arena{byUUID: map[uuid.UUID]*Point{}, byName: map[string]*Point{}}
}

// Add registers a new Point, assigning it the next contiguous index.
// Returns a ConfigError if the UUID or non-empty name is already in use.
func (a *Arena) Add(p *Point) error {
	if a.frozen.Load() {
		panic("metadata: mutation of frozen arena")
	}
	if _, dup := a.byUUID[p.id]; dup {
		return &ConfigError{Point: p.String(), Message: "duplicate point UUID"}
	}
	if p.name != "" {
		if _, dup := a.byName[p.name]; dup {
			return &ConfigError{Point: p.String(), Message: "duplicate point name"}
		}
	}
	p.index = len(a.points)
	a.points = append(a.points, p)
	a.byUUID[p.id] = p
	if p.name != "" {
		a.byName[p.name] = p
	}
	return nil
}

// At returns the point at the given arena index.
func (a *Arena) At(i int) *Point { return a.points[i] }

// Len returns the number of points in the arena.
func (a *Arena) Len() int { return len(a.points) }

// All returns the points in arena (insertion) order. Callers must not
// mutate the slice.
func (a *Arena) All() []*Point { return a.points }

// ByUUID looks up a point by UUID.
func (a *Arena) ByUUID(id uuid.UUID) (*Point, bool) {
	p, ok := a.byUUID[id]
	return p, ok
}

// ByName looks up a point by name.
func (a *Arena) ByName(name string) (*Point, bool) {
	p, ok := a.byName[name]
	return p, ok
}

// Sorted returns the points ordered by (level, UUID) — the total order
// AdjustLevel's level assignment combined with UUID tie-breaking produces.
func (a *Arena) Sorted() []*Point {
	out := append([]*Point(nil), a.points...)
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// Freeze marks the arena immutable (Add panics afterwards): LoadFile calls
// it once Tidy and AdjustLevel have completed, matching the "built once then
// frozen for the life of a processor instance" ownership rule.
func (a *Arena) Freeze() { a.frozen.Store(true) }

// IsFrozen reports whether Freeze has been called.
func (a *Arena) IsFrozen() bool { return a.frozen.Load() }

// Validate reports a ConfigError for any point left marked Dropped after
// Tidy — callers that require a fully-resolved metadata set should call
// this after loading.
func (a *Arena) Validate() error {
	for _, p := range a.points {
		if p.Dropped {
			return &ConfigError{Point: p.String(), Message: "point dropped during load and still referenced"}
		}
	}
	return nil
}

func (a *Arena) String() string {
	return fmt.Sprintf("metadata.Arena{points=%d}", len(a.points))
}

// Package value implements the point-value record and its variants, plus the
// rich serializable value types (Tuple, Dict, State, Complex, Rational,
// BigRational) that flow through the processor.
package value

import "sync/atomic"

// Container is the capability shared by every freezable rich value: Tuple,
// Dict, and PointValue itself (State has no mutators and does not implement
// it). Freezing is one-way; a frozen container
// panics on any mutator call instead of silently ignoring it, because mutating
// a value that some other goroutine may already be holding as an immutable
// snapshot is a programming error, not a recoverable condition.
type Container interface {
	IsFrozen() bool
	Freeze()
	FreezeDeep()
}

// frozenFlag is embedded by every Container implementation. A plain struct
// copy carries the flag's current state; the Copy methods reset it so their
// clones start unfrozen, matching the copy-on-write semantics PointValue
// relies on for Morph. It is safe to share once frozen.
type frozenFlag struct {
	frozen atomic.Bool
}

func (f *frozenFlag) IsFrozen() bool { return f.frozen.Load() }

func (f *frozenFlag) freeze() { f.frozen.Store(true) }

// checkMutable panics with a message naming what was mutated; invariant
// violation, not a caller error to recover from.
func (f *frozenFlag) checkMutable(what string) {
	if f.frozen.Load() {
		panic("value: mutation of frozen " + what)
	}
}

// Package filter implements per-point value filtering applied when
// ingesting values into stores, grounded on the teacher's phase-transition
// template shape (coordinator/phases.go) generalized from workflow phases
// to a filter pipeline's fixed sequence of checks.
package filter

import (
	"time"

	"github.com/evalgo/rvpf/value"
)

// Snapper lets a concrete filter adjust a candidate value before the
// time-limit/suppression decision is made; the default is a no-op.
type Snapper interface {
	Snap(v float64, prev float64, hasPrev bool) float64
}

// Decider is the concrete filter's suppression policy: given the candidate
// and the previous emitted value, report whether the candidate should be
// suppressed.
type Decider interface {
	DoFilter(v float64, prev float64, hasPrev bool) bool
}

// Base implements the fixed nine-step policy shared by every value filter;
// DeadbandFilter and StepFilter plug in their own Decider (and, for the
// latter, Snapper).
type Base struct {
	Disabled  bool
	TrimUnit  time.Duration // 0 means no stamp trimming
	TimeLimit time.Duration // 0 means no time-limit based forced emission

	decider Decider
	snapper Snapper

	hasPrev   bool
	prevValue float64
	prevStamp time.Time
	hasHold   bool
	held      value.PointValue
}

// NewBase wires a Decider (required) and an optional Snapper.
func NewBase(decider Decider, snapper Snapper) *Base {
	return &Base{decider: decider, snapper: snapper}
}

// Filter applies the nine-step policy to a single candidate PointValue
// (nil meaning "absent input"), returning zero or more emitted PointValues.
func (b *Base) Filter(input *value.PointValue) []value.PointValue {
	if b.Disabled {
		if input == nil {
			return nil
		}
		return []value.PointValue{*input}
	}

	if input == nil {
		return b.flushHeld()
	}

	pv := *input
	if pv.Stamp().IsZero() {
		now := time.Now()
		pv = pv.Morph(nil, &now)
	}
	if b.TrimUnit > 0 {
		trimmed := pv.Stamp().Truncate(b.TrimUnit)
		if !trimmed.Equal(pv.Stamp()) {
			pv = pv.Morph(nil, &trimmed)
		}
	}

	if pv.IsNull() {
		out := b.flushHeld()
		pv.Freeze()
		out = append(out, pv)
		b.reset()
		return out
	}

	v, _ := pv.Value().(float64)
	if b.snapper != nil {
		v = b.snapper.Snap(v, b.prevValue, b.hasPrev)
		pv.SetValue(v)
	}

	if !b.hasPrev {
		b.recordPrev(v, pv.Stamp())
		pv.Freeze()
		return []value.PointValue{pv}
	}

	if b.TimeLimit > 0 && pv.Stamp().Sub(b.prevStamp) >= b.TimeLimit {
		out := b.flushHeld()
		b.recordPrev(v, pv.Stamp())
		pv.Freeze()
		out = append(out, pv)
		return out
	}

	if b.decider.DoFilter(v, b.prevValue, b.hasPrev) {
		b.hold(pv)
		return nil
	}

	b.recordPrev(v, pv.Stamp())
	pv.Freeze()
	return []value.PointValue{pv}
}

func (b *Base) recordPrev(v float64, stamp time.Time) {
	b.hasPrev = true
	b.prevValue = v
	b.prevStamp = stamp
}

func (b *Base) hold(pv value.PointValue) {
	b.hasHold = true
	b.held = pv
}

func (b *Base) flushHeld() []value.PointValue {
	if !b.hasHold {
		return nil
	}
	h := b.held
	h.Freeze()
	b.hasHold = false
	b.held = value.PointValue{}
	return []value.PointValue{h}
}

func (b *Base) reset() {
	b.hasPrev = false
	b.hasHold = false
	b.held = value.PointValue{}
}

// Package behavior implements the per-input behavior chain: the protocol a
// point's configured behaviors use to decide whether a notice triggers
// recomputation and which input values a select needs, grounded on the
// teacher's phase state machine (coordinator/phases.go's
// ValidTransitions/CanTransitionTo) generalized from a single linear
// workflow phase sequence to a per-behavior prepare/commit convergence
// loop, and on the runtime variable resolver
// (semantic/runtime/variables.go) for chain-walking substitution.
package behavior

import (
	"time"

	"github.com/evalgo/rvpf/metadata"
	"github.com/evalgo/rvpf/value"
)

// Context is the narrow slice of batch functionality a Behavior needs.
// batch.Batch satisfies this structurally, so neither behavior nor batch
// imports the other; the processor driver imports both and passes a Batch
// wherever a Context is expected.
type Context interface {
	GetPointValue(point value.PointHandle, stamp time.Time, interval time.Duration, notNull, interpolated, extrapolated bool) (value.PointValue, bool)
	ScheduleUpdate(v value.PointValue)
	SetUpResultValue(preMade value.PointValue) value.PointValue
	ReplaceResultValue(newValue value.PointValue)
	LookupPass() int
	CutoffTime() (time.Time, bool)
	Signal(name string, info any)
}

// Behavior is the runtime protocol exposed by an activated chain node.
type Behavior interface {
	SetRelation(rel *metadata.PointInput)
	SetInherited(inherited bool)
	SetUp(arena *metadata.Arena, params map[string]any) error
	SetNext(next Behavior)
	Next() Behavior

	PrepareTrigger(notice value.PointValue, ctx Context) bool
	Trigger(notice value.PointValue, ctx Context)
	PrepareSelect(result value.PointValue, ctx Context) bool
	Select(result value.PointValue, ctx Context) bool

	IsInputRequired() bool
	IsInputInterpolated() bool
	IsInputExtrapolated() bool
	IsInputValid(input value.PointValue, result value.PointValue) bool
	IsResultFetched(notice value.PointValue, result value.PointValue) bool
	NewResultValue(stamp time.Time) value.PointValue
}

// base implements the plumbing shared by every concrete Behavior: relation
// linkage, inherited flag, and chain threading. Concrete behaviors embed
// it and override only the protocol methods their policy needs.
type base struct {
	relation  *metadata.PointInput
	inherited bool
	next      Behavior
}

func (b *base) SetRelation(rel *metadata.PointInput) { b.relation = rel }
func (b *base) SetInherited(inherited bool)          { b.inherited = inherited }
func (b *base) SetNext(next Behavior)                { b.next = next }
func (b *base) Next() Behavior                       { return b.next }
func (b *base) Relation() *metadata.PointInput       { return b.relation }
func (b *base) Inherited() bool                      { return b.inherited }

// PrepareTrigger/PrepareSelect default to "ready immediately" — most
// behaviors need no store round-trip before they can act; those that do
// (e.g. ones resolving interpolated input) override these.
func (b *base) PrepareTrigger(value.PointValue, Context) bool { return true }
func (b *base) PrepareSelect(value.PointValue, Context) bool  { return true }

func (b *base) IsInputInterpolated() bool { return false }
func (b *base) IsInputExtrapolated() bool { return false }

func (b *base) IsInputValid(input value.PointValue, _ value.PointValue) bool {
	return !input.IsNull()
}

func (b *base) IsResultFetched(_ value.PointValue, result value.PointValue) bool {
	return result.Fetched()
}

func (b *base) NewResultValue(stamp time.Time) value.PointValue {
	var ref value.PointRef
	if b.relation != nil && b.relation.Owner != nil {
		ref = value.RefResolved(b.relation.Owner)
	}
	return value.NewResult(ref, stamp)
}

// Required is the primary default behavior: the notice always triggers
// recomputation of its result, and the select phase demands the input be
// present (not Null) before computing.
type Required struct{ base }

// NewRequired builds a Required behavior instance.
func NewRequired() *Required { return &Required{} }

func (r *Required) SetUp(*metadata.Arena, map[string]any) error { return nil }

// Trigger only registers the ResultValue; it does not append the notice as
// an input. Select is the sole place inputs get appended (it runs for
// every relation, not just the one whose notice fired), so a result with
// several required/optional inputs gets them all rather than just the one
// that happened to trigger this pass.
func (r *Required) Trigger(notice value.PointValue, ctx Context) {
	ctx.SetUpResultValue(r.NewResultValue(notice.Stamp()))
}

// Select fetches this relation's source value (the cache already holds
// the triggering notice under an exact stamp match, so this also picks up
// the notice that fired Trigger) and appends it to result's inputs. A
// required input that cannot be fetched, or that fails validation, fails
// the select so computePhase can skip or null the result. Appending is a
// no-op once this relation's source already contributed an input, so a
// driver that re-invokes Select across look-up passes never duplicates it.
func (r *Required) Select(result value.PointValue, ctx Context) bool {
	if r.relation == nil || r.relation.Source == nil {
		return false
	}
	if hasInputFrom(result, r.relation.Source) {
		return true
	}
	v, ok := ctx.GetPointValue(r.relation.Source, result.Stamp(), 0, true, false, false)
	if !ok || !r.IsInputValid(v, result) {
		return false
	}
	result.AppendInput(v)
	ctx.ReplaceResultValue(result)
	return true
}

func (r *Required) IsInputRequired() bool { return true }

// Optional behaves like Required except a missing/invalid input never
// blocks the select phase — it simply contributes nothing.
type Optional struct{ base }

// NewOptional builds an Optional behavior instance.
func NewOptional() *Optional { return &Optional{} }

func (o *Optional) SetUp(*metadata.Arena, map[string]any) error { return nil }

func (o *Optional) Trigger(notice value.PointValue, ctx Context) {
	ctx.SetUpResultValue(o.NewResultValue(notice.Stamp()))
}

// Select fetches and appends this relation's source value when present,
// but a missing or invalid input never fails the select — it simply
// contributes nothing to the result. Like Required.Select, appending is a
// no-op once already done so a later look-up pass can retry safely.
func (o *Optional) Select(result value.PointValue, ctx Context) bool {
	if o.relation == nil || o.relation.Source == nil {
		return true
	}
	if hasInputFrom(result, o.relation.Source) {
		return true
	}
	v, ok := ctx.GetPointValue(o.relation.Source, result.Stamp(), 0, true, false, false)
	if ok && o.IsInputValid(v, result) {
		result.AppendInput(v)
		ctx.ReplaceResultValue(result)
	}
	return true
}

func (o *Optional) IsInputRequired() bool { return false }

// hasInputFrom reports whether result already carries an input whose
// point identity matches source, so a repeated Select call (across
// look-up passes) knows to skip re-fetching and re-appending. Compares by
// resolved UUID when the input's reference is resolved, falling back to
// the raw key compared against the source's UUID string (covers an input
// still carrying an unresolved UUID-only ref; a name-only ref never
// matches).
func hasInputFrom(result value.PointValue, source value.PointHandle) bool {
	id := source.PointUUID()
	key := id.String()
	for _, in := range result.Inputs() {
		if h, ok := in.Point().Handle(); ok {
			if h.PointUUID() == id {
				return true
			}
			continue
		}
		if in.Point().Key() == key {
			return true
		}
	}
	return false
}

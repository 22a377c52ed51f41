package value

import (
	"errors"
	"time"
)

// Variant is the PointValue discriminant. A tagged union is used instead of
// a type hierarchy per the design notes: the variant tag is the single
// source of truth for IsSynthesized/IsDeleted/etc, never a type assertion.
type Variant int

const (
	VariantNormalized Variant = iota
	VariantSynthesized
	VariantVersioned
	VariantDeleted // VersionedValue sub-variant
	VariantPurged  // VersionedValue sub-variant
	VariantRecalcTrigger
	VariantNull
	VariantResult
)

// ErrUnresolved is returned by IsCacheable (and similar point-dependent
// queries) when the PointRef has not yet been bound to a definition — see
// SPEC_FULL.md §9's resolution of the IsCacheable open question.
var ErrUnresolved = errors.New("value: point reference not yet resolved")

// PointValue is the tuple (pointRef, stamp, state, value) plus a variant tag
// and, for VariantVersioned, a version time. Equality and hashing are keyed
// on (pointRef.Key(), stamp). Once frozen no field may change; mutators
// check the same frozenFlag embedded in Container.
type PointValue struct {
	frozenFlag

	point   PointRef
	stamp   time.Time
	state   State
	hasState bool
	val     any
	variant Variant
	version int64

	// ResultValue-only fields.
	inputs  []PointValue
	fetched bool
}

// New builds a NormalizedValue PointValue.
func New(point PointRef, stamp time.Time, val any) PointValue {
	return PointValue{point: point, stamp: stamp, val: val, variant: VariantNormalized}
}

// NewNull builds a Null PointValue: it never compares equal to anything,
// including another Null, matching the spec's sameValueAs contract.
func NewNull(point PointRef, stamp time.Time) PointValue {
	return PointValue{point: point, stamp: stamp, variant: VariantNull}
}

// NewSynthesized builds a SynthesizedValue, marking itself as transform
// output.
func NewSynthesized(point PointRef, stamp time.Time, val any) PointValue {
	return PointValue{point: point, stamp: stamp, val: val, variant: VariantSynthesized}
}

// NewVersioned builds a VersionedValue carrying a monotonically-increasing
// version time.
func NewVersioned(point PointRef, stamp time.Time, val any, version int64) PointValue {
	return PointValue{point: point, stamp: stamp, val: val, variant: VariantVersioned, version: version}
}

// NewDeleted builds the Deleted sub-variant of VersionedValue: carries no
// value, signals removal.
func NewDeleted(point PointRef, stamp time.Time, version int64) PointValue {
	return PointValue{point: point, stamp: stamp, variant: VariantDeleted, version: version}
}

// NewPurged builds the Purged sub-variant of VersionedValue.
func NewPurged(point PointRef, stamp time.Time, version int64) PointValue {
	return PointValue{point: point, stamp: stamp, variant: VariantPurged, version: version}
}

// NewRecalcTrigger builds a marker value whose sole role is forcing
// recomputation; the transform layer treats it as compute-only, emit-nothing.
func NewRecalcTrigger(point PointRef, stamp time.Time) PointValue {
	return PointValue{point: point, stamp: stamp, variant: VariantRecalcTrigger}
}

// NewResult builds a ResultValue: a PointValue plus an ordered input
// sequence and a fetched flag.
func NewResult(point PointRef, stamp time.Time) PointValue {
	return PointValue{point: point, stamp: stamp, variant: VariantResult}
}

// Point, Stamp, Value, Variant, Version are plain accessors.
func (p PointValue) Point() PointRef  { return p.point }
func (p PointValue) Stamp() time.Time { return p.stamp }
func (p PointValue) Value() any       { return p.val }
func (p PointValue) Kind() Variant    { return p.variant }
func (p PointValue) Version() int64   { return p.version }

// State returns the associated state and whether one was set.
func (p PointValue) State() (State, bool) { return p.state, p.hasState }

// SetState sets the state in place. Only legal while unfrozen.
func (p *PointValue) SetState(s State) {
	p.checkMutable("PointValue")
	p.state = s
	p.hasState = true
}

// SetValue sets the value in place. Only legal while unfrozen.
func (p *PointValue) SetValue(v any) {
	p.checkMutable("PointValue")
	p.val = v
}

// IsSynthesized, IsDeleted, IsPurged, IsNull, IsRecalcTrigger, IsResult are
// variant-tag predicates — the single source of truth the design notes call
// for, never a type assertion.
func (p PointValue) IsSynthesized() bool   { return p.variant == VariantSynthesized }
func (p PointValue) IsVersioned() bool     { return p.variant == VariantVersioned || p.variant == VariantDeleted || p.variant == VariantPurged }
func (p PointValue) IsDeleted() bool       { return p.variant == VariantDeleted }
func (p PointValue) IsPurged() bool        { return p.variant == VariantPurged }
func (p PointValue) IsNull() bool          { return p.variant == VariantNull }
func (p PointValue) IsRecalcTrigger() bool { return p.variant == VariantRecalcTrigger }
func (p PointValue) IsResult() bool        { return p.variant == VariantResult }

// Inputs returns the ResultValue's ordered input values; empty for
// non-Result variants.
func (p PointValue) Inputs() []PointValue { return p.inputs }

// Fetched reports the ResultValue's fetched flag.
func (p PointValue) Fetched() bool { return p.fetched }

// SetFetched sets the fetched flag. Only legal while unfrozen.
func (p *PointValue) SetFetched(f bool) {
	p.checkMutable("PointValue")
	p.fetched = f
}

// AppendInput appends an input PointValue to a ResultValue. Only legal
// while unfrozen.
func (p *PointValue) AppendInput(input PointValue) {
	p.checkMutable("PointValue")
	p.inputs = append(p.inputs, input)
}

// Freeze marks the PointValue immutable, also freezing any contained
// Container held in the value or state.
func (p *PointValue) Freeze() {
	p.freeze()
	if c, ok := p.val.(Container); ok {
		c.Freeze()
	}
	for i := range p.inputs {
		p.inputs[i].Freeze()
	}
}

// FreezeDeep is identical to Freeze: inputs and contained containers are
// already walked.
func (p *PointValue) FreezeDeep() { p.Freeze() }

// Thaw returns an unfrozen Copy; Thawed reports whether the receiver itself
// is unfrozen already, avoiding an unnecessary copy.
func (p PointValue) Thaw() PointValue {
	c := p.Copy()
	return c
}

func (p PointValue) Thawed() bool { return !p.IsFrozen() }

// Copy returns a value-identical, unfrozen clone. Contained Containers are
// shallow-copied so mutating the clone never affects the original even
// though both started from the same underlying container value.
func (p PointValue) Copy() PointValue {
	c := p
	c.frozenFlag = frozenFlag{}
	switch v := p.val.(type) {
	case *Tuple:
		c.val = v.Copy()
	case *Dict:
		c.val = v.Copy()
	}
	if p.inputs != nil {
		c.inputs = make([]PointValue, len(p.inputs))
		for i, in := range p.inputs {
			c.inputs[i] = in.Copy()
		}
	}
	return c
}

// Morph returns a clone with newPoint and/or newStamp applied, unless the
// receiver can be mutated in place: that is only permitted when the
// receiver is unfrozen and the field being set was previously unset (a
// zero-value PointRef / zero time.Time). Otherwise Morph always clones.
func (p PointValue) Morph(newPoint *PointRef, newStamp *time.Time) PointValue {
	// A ResultValue always takes the clone path: its inputs must be cloned
	// (themselves morphed empty) on every call, in-place mutation would
	// leave the clone aliasing the receiver's input slice.
	canMutateInPlace := !p.IsFrozen() && p.variant != VariantResult
	if canMutateInPlace && newPoint != nil && p.point == (PointRef{}) {
		// point was entirely zero-value: permitted in place.
	} else if newPoint != nil {
		canMutateInPlace = false
	}
	if canMutateInPlace && newStamp != nil && !p.stamp.IsZero() {
		canMutateInPlace = false
	}

	if canMutateInPlace {
		if newPoint != nil {
			p.point = *newPoint
		}
		if newStamp != nil {
			p.stamp = *newStamp
		}
		return p
	}

	c := p.Copy()
	if newPoint != nil {
		c.point = *newPoint
	}
	if newStamp != nil {
		c.stamp = *newStamp
	}
	if p.variant == VariantResult {
		// ResultValue.Morph(empty) clones inputs (themselves morphed empty)
		// so structural equality survives without aliasing.
		c.inputs = make([]PointValue, len(p.inputs))
		for i, in := range p.inputs {
			c.inputs[i] = in.Morph(nil, nil)
		}
	}
	return c
}

// Restore replaces the lazy PointRef with its resolved definition.
func (p PointValue) Restore(resolve func(PointRef) (PointHandle, bool)) (PointValue, error) {
	ref, err := p.point.Restore(resolve)
	if err != nil {
		return p, err
	}
	c := p
	c.point = ref
	return c, nil
}

// Equal implements the spec's equality contract: keyed on
// (pointUUID-or-name, stamp). Null never compares equal to anything.
func (p PointValue) Equal(o PointValue) bool {
	if p.variant == VariantNull || o.variant == VariantNull {
		return false
	}
	return p.point.Key() == o.point.Key() && p.stamp.Equal(o.stamp)
}

// Hash returns a hash consistent with Equal: keyed on (pointKey, stamp).
func (p PointValue) Hash() uint64 {
	h := fnv1a(p.point.Key())
	h = fnv1aUpdate(h, p.stamp.UTC().Format(time.RFC3339Nano))
	return h
}

func fnv1a(s string) uint64 {
	const offset64 = 14695981039346656037
	return fnv1aUpdate(offset64, s)
}

func fnv1aUpdate(h uint64, s string) uint64 {
	const prime64 = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// SameValueAs compares value and state only (not point/stamp/variant tag),
// matching the spec's ResultValue specialization: inputs are compared by
// identity/content, and Null never compares equal.
func (p PointValue) SameValueAs(o PointValue) bool {
	if p.variant == VariantNull || o.variant == VariantNull {
		return false
	}
	if p.hasState != o.hasState || (p.hasState && !p.state.Equal(o.state)) {
		return false
	}
	if !equalAny(p.val, o.val) {
		return false
	}
	if p.variant == VariantResult && o.variant == VariantResult {
		if len(p.inputs) != len(o.inputs) {
			return false
		}
		for i := range p.inputs {
			if !p.inputs[i].SameValueAs(o.inputs[i]) {
				return false
			}
		}
	}
	return true
}

// IsCacheable reports whether the point's volatility allows caching. An
// unresolved reference returns ErrUnresolved rather than risking a nil
// dereference — see SPEC_FULL.md §9's resolution of this open question.
func (p PointValue) IsCacheable(volatile func(PointHandle) bool) (bool, error) {
	h, ok := p.point.Handle()
	if !ok {
		return false, ErrUnresolved
	}
	return !volatile(h), nil
}

// ContentCodec is the Content plugin contract: encode/decode/normalize/
// denormalize. Normalized/Denormalized/Encoded/Decoded below delegate to it
// and are no-ops when content is nil, per the spec.
type ContentCodec interface {
	Normalize(v any) (any, error)
	Denormalize(v any) (any, error)
	Encode(v any) (any, error)
	Decode(v any) (any, error)
}

func (p PointValue) Normalized(content ContentCodec) (PointValue, error) {
	if content == nil {
		return p, nil
	}
	v, err := content.Normalize(p.val)
	if err != nil {
		return p, err
	}
	c := p.Copy()
	c.val = v
	return c, nil
}

func (p PointValue) Denormalized(content ContentCodec) (PointValue, error) {
	if content == nil {
		return p, nil
	}
	v, err := content.Denormalize(p.val)
	if err != nil {
		return p, err
	}
	c := p.Copy()
	c.val = v
	return c, nil
}

func (p PointValue) Encoded(content ContentCodec) (PointValue, error) {
	if content == nil {
		return p, nil
	}
	v, err := content.Encode(p.val)
	if err != nil {
		return p, err
	}
	c := p.Copy()
	c.val = v
	return c, nil
}

func (p PointValue) Decoded(content ContentCodec) (PointValue, error) {
	if content == nil {
		return p, nil
	}
	v, err := content.Decode(p.val)
	if err != nil {
		return p, err
	}
	c := p.Copy()
	c.val = v
	return c, nil
}

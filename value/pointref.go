package value

import (
	"fmt"

	"github.com/google/uuid"
)

// PointRef is a reference to a point that may be lazy (by UUID or by name)
// or resolved to a concrete handle into the metadata arena. Modeled as a sum
// type per the design notes rather than a nilable interface, so the three
// states are exhaustively handled at every call site.
type PointRef struct {
	kind     pointRefKind
	id       uuid.UUID
	name     string
	resolved PointHandle
}

type pointRefKind int

const (
	refByUUID pointRefKind = iota
	refByName
	refResolved
)

// PointHandle is a non-owning handle into the metadata arena; metadata.Point
// implements it so this package need not import metadata (which depends on
// value), avoiding an import cycle.
type PointHandle interface {
	PointUUID() uuid.UUID
	PointName() string
}

// RefByUUID builds an unresolved reference keyed by UUID.
func RefByUUID(id uuid.UUID) PointRef { return PointRef{kind: refByUUID, id: id} }

// RefByName builds an unresolved reference keyed by name.
func RefByName(name string) PointRef { return PointRef{kind: refByName, name: name} }

// RefResolved builds a reference already bound to a concrete point.
func RefResolved(h PointHandle) PointRef { return PointRef{kind: refResolved, resolved: h} }

// IsResolved reports whether Restore has already been applied.
func (r PointRef) IsResolved() bool { return r.kind == refResolved }

// Handle returns the resolved handle, if any.
func (r PointRef) Handle() (PointHandle, bool) {
	if r.kind == refResolved {
		return r.resolved, true
	}
	return nil, false
}

// Key returns the comparison key used for equality/hashing: the UUID string
// if resolved or UUID-keyed, else the name.
func (r PointRef) Key() string {
	switch r.kind {
	case refByUUID:
		return r.id.String()
	case refResolved:
		return r.resolved.PointUUID().String()
	default:
		return r.name
	}
}

// Restore binds an unresolved reference to its definition, looked up from
// the provided resolver. It fails loudly (returns an error, never silently
// keeps the lazy form) on an identity mismatch between what was requested
// and what was found.
func (r PointRef) Restore(resolve func(PointRef) (PointHandle, bool)) (PointRef, error) {
	if r.kind == refResolved {
		return r, nil
	}
	h, ok := resolve(r)
	if !ok {
		return r, fmt.Errorf("value: cannot restore point reference %q: not found", r.Key())
	}
	switch r.kind {
	case refByUUID:
		if h.PointUUID() != r.id {
			return r, fmt.Errorf("value: restore identity mismatch for %q", r.Key())
		}
	case refByName:
		if h.PointName() != r.name {
			return r, fmt.Errorf("value: restore identity mismatch for %q", r.Key())
		}
	}
	return RefResolved(h), nil
}

// String renders a human-readable form for logging/errors.
func (r PointRef) String() string {
	switch r.kind {
	case refResolved:
		return r.resolved.PointUUID().String()
	case refByUUID:
		return r.id.String()
	default:
		return r.name
	}
}

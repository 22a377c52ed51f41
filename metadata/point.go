// Package metadata implements the point-metadata graph: the immutable,
// loader-assembled topology of points, their inputs, replicates, and
// associated plugins, grounded on the teacher's DAG cycle-checker and
// Kahn's-algorithm executor ordering (graph/dag.go) generalized from
// workflow-action dependencies to point dependencies.
package metadata

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/evalgo/rvpf/codec"
	"github.com/evalgo/rvpf/value"
)

// Content is the per-point encode/decode/normalize/denormalize plugin.
// PointValue.Normalized/Denormalized/Encoded/Decoded delegate to it.
type Content interface {
	Normalize(v any) (any, error)
	Denormalize(v any) (any, error)
	Encode(v any) (any, error)
	Decode(v any) (any, error)
}

// value.ContentCodec and metadata.Content share the same shape; Adapt
// bridges a metadata Content into the value package's codec contract
// without value importing metadata.
func adaptContent(c Content) value.ContentCodec {
	if c == nil {
		return nil
	}
	return contentAdapter{c}
}

type contentAdapter struct{ c Content }

func (a contentAdapter) Normalize(v any) (any, error)   { return a.c.Normalize(v) }
func (a contentAdapter) Denormalize(v any) (any, error) { return a.c.Denormalize(v) }
func (a contentAdapter) Encode(v any) (any, error)      { return a.c.Encode(v) }
func (a contentAdapter) Decode(v any) (any, error)      { return a.c.Decode(v) }

// defaultBinaryContent externalizes/internalizes through codec as the
// fallback Content when a point declares none.
type defaultBinaryContent struct{}

func (defaultBinaryContent) Normalize(v any) (any, error)   { return v, nil }
func (defaultBinaryContent) Denormalize(v any) (any, error) { return v, nil }
func (defaultBinaryContent) Encode(v any) (any, error)      { return codec.ExternalizeBytes(v) }
func (defaultBinaryContent) Decode(v any) (any, error) {
	b, ok := v.([]byte)
	if !ok {
		return v, nil
	}
	return codec.InternalizeBytes(b)
}

// Sync is a time-grid that quantizes stamps, e.g. "every 5 minutes".
type Sync interface {
	// Quantize returns the grid-aligned stamp for the given instant.
	Quantize(stamp int64) int64
}

// Store is the external system of record for point values.
type Store interface {
	Name() string
}

// Arg names one slot in a Transform's ordered argument list: whether it
// accepts multiple inputs, whether it is required, and the default
// behaviors to register when a relation declares none explicitly.
type Arg struct {
	Name             string
	Required         bool
	Multiple         bool
	DefaultBehaviors []string
}

// Transform computes a result PointValue from its ordered ResultValue
// inputs.
type Transform interface {
	Name() string
	Args() []Arg
	Compute(result value.PointValue) (value.PointValue, error)
}

// Replicate is (replicate point, optional convert) — propagating a value to
// another point, optionally transforming it en route.
type Replicate struct {
	Target  *Point
	Convert Transform
}

// PointInput is one input-point relation: its own sync, behavior chain
// (named only here; the activated chain lives in the behavior package to avoid
// an import cycle — Point stores the configured names, behavior.Activate
// resolves them), params, and control-input flag. Owner back-links to the
// result point this relation belongs to, set by AddInput, since a Behavior
// only ever sees the relation pointer and still needs to know which point
// it is computing a ResultValue for.
type PointInput struct {
	Owner         *Point
	Source        *Point
	Sync          Sync
	BehaviorNames []string
	Params        map[string]any
	ControlInput  bool
	ArgName       string // which Transform Arg this relation fills, if any
}

// Point is one node in the metadata graph, identified by UUID and
// optionally named. Stored by contiguous index in an Arena rather than by
// pointer, per the arena-indexing redesign: Inputs/Replicates/Results below
// hold pointers resolved at Tidy time, not raw indices, since within a
// single frozen Metadata generation pointer identity is stable.
type Point struct {
	id    uuid.UUID
	name  string
	index int

	Content   Content
	Store     Store
	Sync      Sync
	Transform Transform

	Inputs     []PointInput
	Replicates []Replicate
	Results    []*Point // back-links: points for which this point is an input

	Volatile     bool
	NullRemoves  bool
	Dropped      bool
	RecalcLatest bool

	level int
}

// NewPoint constructs an un-indexed Point; Arena.Add assigns its index.
func NewPoint(id uuid.UUID, name string) *Point {
	return &Point{id: id, name: name, level: -1}
}

// PointUUID and PointName implement value.PointHandle.
func (p *Point) PointUUID() uuid.UUID { return p.id }
func (p *Point) PointName() string    { return p.name }

// Index returns the point's position in its Arena.
func (p *Point) Index() int { return p.index }

// Level returns the assigned dependency level (-1 before AdjustLevel runs).
func (p *Point) Level() int { return p.level }

// ContentCodec adapts Point.Content (or the binary-externalizer default)
// for use with value.PointValue.Normalized/Denormalized/Encoded/Decoded.
func (p *Point) ContentCodec() value.ContentCodec {
	if p.Content == nil {
		return adaptContent(defaultBinaryContent{})
	}
	return adaptContent(p.Content)
}

// AddInput registers a new input relation, back-linking this point onto
// the source's Results per the invariant that input and result relations
// are always back-linked.
func (p *Point) AddInput(in PointInput) {
	in.Owner = p
	p.Inputs = append(p.Inputs, in)
	if in.Source != nil {
		in.Source.Results = append(in.Source.Results, p)
	}
}

// AddReplicate registers a replicate relation; a point replicating to
// itself is rejected by AdjustLevel, not here, so the cycle check has a
// single home.
func (p *Point) AddReplicate(r Replicate) {
	p.Replicates = append(p.Replicates, r)
}

// String renders a diagnostic identity: name if present, else UUID.
func (p *Point) String() string {
	if p.name != "" {
		return p.name
	}
	return p.id.String()
}

// Less implements the graph's total order: by level, then UUID — the order
// the batch engine's execution walk and the arena's sort rely on.
func Less(a, b *Point) bool {
	if a.level != b.level {
		return a.level < b.level
	}
	return a.id.String() < b.id.String()
}

// ConfigError signals a metadata load-time configuration problem: a
// dangling reference, a mismatched arg count, or similar. It is distinct
// from a Go panic because malformed metadata is expected operator input,
// not a programming invariant violation.
type ConfigError struct {
	Point   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Point == "" {
		return fmt.Sprintf("metadata: %s", e.Message)
	}
	return fmt.Sprintf("metadata: point %s: %s", e.Point, e.Message)
}

package metadata

import "fmt"

// PointRefSpec is the loader-side lazy form of a point reference: either a
// UUID or a name, resolved against the Arena during Tidy. Loaders populate
// this before Tidy runs; after Tidy every relation's Source/Target fields
// are live *Point pointers.
type PointRefSpec struct {
	ByUUIDStr string
	ByName    string
}

func (s PointRefSpec) resolve(arena *Arena) (*Point, error) {
	if s.ByName != "" {
		if p, ok := arena.ByName(s.ByName); ok {
			return p, nil
		}
		return nil, fmt.Errorf("metadata: dangling reference to point name %q", s.ByName)
	}
	if s.ByUUIDStr != "" {
		for _, p := range arena.All() {
			if p.id.String() == s.ByUUIDStr {
				return p, nil
			}
		}
		return nil, fmt.Errorf("metadata: dangling reference to point UUID %q", s.ByUUIDStr)
	}
	return nil, fmt.Errorf("metadata: empty point reference")
}

// pendingInput and pendingReplicate are the loader's unresolved relation
// specs, consumed by Tidy and discarded afterward.
type pendingInput struct {
	Owner         *Point
	SourceRef     PointRefSpec
	Sync          Sync
	BehaviorNames []string
	Params        map[string]any
	ControlInput  bool
	ArgName       string
}

type pendingReplicate struct {
	Owner      *Point
	TargetRef  PointRefSpec
	Convert    Transform
}

// Loader accumulates pending relations during parse, then Tidy resolves
// them all at once against a frozen view of what points exist.
type Loader struct {
	Arena      *Arena
	inputs     []pendingInput
	replicates []pendingReplicate
}

// NewLoader wraps an Arena with pending-relation bookkeeping.
func NewLoader(arena *Arena) *Loader {
	return &Loader{Arena: arena}
}

// QueueInput records an input relation to resolve during Tidy.
func (l *Loader) QueueInput(owner *Point, ref PointRefSpec, sync Sync, behaviors []string, params map[string]any, control bool, argName string) {
	l.inputs = append(l.inputs, pendingInput{
		Owner: owner, SourceRef: ref, Sync: sync, BehaviorNames: behaviors,
		Params: params, ControlInput: control, ArgName: argName,
	})
}

// QueueReplicate records a replicate relation to resolve during Tidy.
func (l *Loader) QueueReplicate(owner *Point, ref PointRefSpec, convert Transform) {
	l.replicates = append(l.replicates, pendingReplicate{Owner: owner, TargetRef: ref, Convert: convert})
}

// Tidy resolves every queued input-relation and replicate reference from
// spec to definition. A dangling input or replicate reference is a
// ConfigError; an input relation whose source point is marked Dropped is
// removed rather than registered.
func (l *Loader) Tidy() error {
	for _, pi := range l.inputs {
		src, err := pi.SourceRef.resolve(l.Arena)
		if err != nil {
			return &ConfigError{Point: pi.Owner.String(), Message: err.Error()}
		}
		if src.Dropped {
			continue
		}
		pi.Owner.AddInput(PointInput{
			Source: src, Sync: pi.Sync, BehaviorNames: pi.BehaviorNames,
			Params: pi.Params, ControlInput: pi.ControlInput, ArgName: pi.ArgName,
		})
	}
	for _, pr := range l.replicates {
		target, err := pr.TargetRef.resolve(l.Arena)
		if err != nil {
			return &ConfigError{Point: pr.Owner.String(), Message: err.Error()}
		}
		pr.Owner.AddReplicate(Replicate{Target: target, Convert: pr.Convert})
	}
	l.inputs = nil
	l.replicates = nil
	return nil
}

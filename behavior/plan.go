package behavior

import (
	"fmt"

	"github.com/evalgo/rvpf/metadata"
)

// Plan is an un-instantiated chain node: the entity name, its parameters,
// whether it was inherited from the transform's Arg defaults (rather than
// declared directly on the relation), and the next node. Holding only this
// until activation defers constructing real Behavior objects, mirroring
// the spec's two-phase indirection.
type Plan struct {
	Name      string
	Params    map[string]any
	Inherited bool
	Next      *Plan
}

// Build assembles a chain from an ordered list of behavior names. The
// Arg-inherited defaults are used only when no names were declared (and
// are then marked Inherited); when any name is declared the defaults are
// ignored. An empty combined list yields a nil chain.
func Build(declared []string, inheritedDefaults []string, params map[string]any) *Plan {
	var head, tail *Plan
	appendNode := func(name string, inherited bool) {
		node := &Plan{Name: name, Params: params, Inherited: inherited}
		if head == nil {
			head = node
			tail = node
			return
		}
		tail.Next = node
		tail = node
	}
	for _, name := range declared {
		appendNode(name, false)
	}
	if len(declared) == 0 {
		for _, name := range inheritedDefaults {
			appendNode(name, true)
		}
	}
	return head
}

// SetUp validates that every node in the chain names a registered
// behavior descriptor.
func SetUp(plan *Plan, reg *Registry) error {
	for node := plan; node != nil; node = node.Next {
		if _, ok := reg.Lookup(node.Name); !ok {
			return fmt.Errorf("behavior: unknown behavior %q", node.Name)
		}
	}
	return nil
}

// Primary walks the chain, finds the first non-synchronized node whose
// descriptor is Primary, and re-prepends it to the front if it is not
// already there. Exactly one primary is allowed; more than one is an
// error and returns nil.
func Primary(plan *Plan, reg *Registry) (*Plan, error) {
	var found *Plan
	var prevOfFound *Plan
	count := 0

	var prev *Plan
	for node := plan; node != nil; node = node.Next {
		d, ok := reg.Lookup(node.Name)
		if ok && d.Primary && !d.Synchronized {
			count++
			if count == 1 {
				found = node
				prevOfFound = prev
			}
		}
		prev = node
	}

	if count == 0 {
		return plan, nil
	}
	if count > 1 {
		return nil, fmt.Errorf("behavior: more than one primary behavior in chain")
	}
	if prevOfFound == nil {
		return plan, nil // already first
	}

	prevOfFound.Next = found.Next
	found.Next = plan
	return found, nil
}

// Instantiate constructs real Behavior instances top-down: SetRelation,
// SetInherited, SetUp(arena, params), then recursively instantiates the
// tail and wires SetNext to the result.
func Instantiate(plan *Plan, arena *metadata.Arena, reg *Registry, rel *metadata.PointInput) (Behavior, error) {
	if plan == nil {
		return nil, nil
	}
	d, ok := reg.Lookup(plan.Name)
	if !ok {
		return nil, fmt.Errorf("behavior: unknown behavior %q", plan.Name)
	}
	b, err := d.Factory(plan.Params)
	if err != nil {
		return nil, fmt.Errorf("behavior: instantiate %q: %w", plan.Name, err)
	}
	b.SetRelation(rel)
	b.SetInherited(plan.Inherited)
	if err := b.SetUp(arena, plan.Params); err != nil {
		return nil, fmt.Errorf("behavior: set up %q: %w", plan.Name, err)
	}
	tail, err := Instantiate(plan.Next, arena, reg, rel)
	if err != nil {
		return nil, err
	}
	if tail != nil {
		b.SetNext(tail)
	}
	return b, nil
}

// Activate runs the full three-step activation protocol: SetUp (validate
// names), Primary (select and re-prepend), Instantiate (build real
// Behavior objects).
func Activate(declared []string, inheritedDefaults []string, params map[string]any, arena *metadata.Arena, reg *Registry, rel *metadata.PointInput) (Behavior, error) {
	plan := Build(declared, inheritedDefaults, params)
	if plan == nil {
		return nil, nil
	}
	if err := SetUp(plan, reg); err != nil {
		return nil, err
	}
	plan, err := Primary(plan, reg)
	if err != nil {
		return nil, err
	}
	return Instantiate(plan, arena, reg, rel)
}

package metadata

import (
	"fmt"
	"sync"

	"github.com/evalgo/rvpf/value"
)

// TransformFactory builds a Transform instance for a point given its
// declared parameters (e.g. a "passthrough" transform needs none, an
// "average" transform might take a window size).
type TransformFactory func(params map[string]any) (Transform, error)

// TransformRegistry maps transform names to factories, mirroring the
// teacher's ActionRegistry's register/lookup/dispatch shape, generalized
// from echo action handlers to transform factories.
type TransformRegistry struct {
	mu        sync.RWMutex
	factories map[string]TransformFactory
}

// NewTransformRegistry returns an empty registry.
func NewTransformRegistry() *TransformRegistry {
	return &TransformRegistry{factories: make(map[string]TransformFactory)}
}

// Register adds a factory under name. Re-registering the same name is a
// configuration error, not silently overwritten.
func (r *TransformRegistry) Register(name string, factory TransformFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("metadata: transform %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister registers a factory, panicking on error — for use during
// package init where a duplicate name is a build-time mistake.
func (r *TransformRegistry) MustRegister(name string, factory TransformFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Build instantiates the named transform with the given parameters.
func (r *TransformRegistry) Build(name string, params map[string]any) (Transform, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("metadata: unknown transform %q", name)
	}
	return factory(params)
}

// Names returns the registered transform names.
func (r *TransformRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	return names
}

// passthroughTransform emits its single required input's value unchanged,
// the trivial transform named in the end-to-end scenario used to exercise
// the whole processor pipeline.
type passthroughTransform struct{}

func (passthroughTransform) Name() string { return "passthrough" }

func (passthroughTransform) Args() []Arg {
	return []Arg{{Name: "input", Required: true, Multiple: false}}
}

func (passthroughTransform) Compute(result value.PointValue) (value.PointValue, error) {
	inputs := result.Inputs()
	if len(inputs) == 0 {
		return result, fmt.Errorf("metadata: passthrough transform has no input")
	}
	out := value.NewSynthesized(result.Point(), result.Stamp(), inputs[0].Value())
	return out, nil
}

// RegisterBuiltins registers the transforms shipped with the core:
// currently just "passthrough".
func RegisterBuiltins(reg *TransformRegistry) {
	reg.MustRegister("passthrough", func(map[string]any) (Transform, error) {
		return passthroughTransform{}, nil
	})
}

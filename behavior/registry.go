package behavior

import (
	"fmt"
	"sync"
)

// Descriptor names a registered behavior type: whether it may serve as a
// chain's primary, whether it runs synchronized (excluded from primary
// candidacy per the Primary-selection rule), and its instantiation
// factory.
type Descriptor struct {
	Name         string
	Primary      bool
	Synchronized bool
	Factory      func(params map[string]any) (Behavior, error)
}

// Registry maps behavior type names to Descriptors, mirroring the
// teacher's ActionRegistry register/lookup shape (semantic/actionregistry.go).
type Registry struct {
	mu    sync.RWMutex
	descs map[string]Descriptor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{descs: make(map[string]Descriptor)}
}

// Register adds a Descriptor under its Name.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descs[d.Name]; exists {
		return fmt.Errorf("behavior: %q already registered", d.Name)
	}
	r.descs[d.Name] = d
	return nil
}

// MustRegister registers a Descriptor, panicking on error.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the Descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	return d, ok
}

// RegisterBuiltins registers the behaviors shipped with the core: the
// "required" primary default and the non-primary "optional".
func RegisterBuiltins(reg *Registry) {
	reg.MustRegister(Descriptor{
		Name:    "required",
		Primary: true,
		Factory: func(map[string]any) (Behavior, error) { return NewRequired(), nil },
	})
	reg.MustRegister(Descriptor{
		Name:    "optional",
		Primary: false,
		Factory: func(map[string]any) (Behavior, error) { return NewOptional(), nil },
	})
}

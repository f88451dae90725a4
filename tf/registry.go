package tf

import (
	"fmt"
	"sync"

	"github.com/iascore/alarmcore/errors"
)

// Registry maps TF class names to constructors (§9 design note: dynamic
// class loading is replaced by a registry of named factories; unknown names
// are configuration errors).
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a named factory. Registering the same name twice is an error.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return errors.WrapInvalid(errors.ErrTFAlreadyRegistered, "Registry", "Register", name)
	}
	r.factories[name] = factory
	return nil
}

// New constructs a fresh TransferFunction instance for the given class name.
func (r *Registry) New(name string) (TransferFunction, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrTFNotRegistered, name), "Registry", "New", "look up TF class")
	}
	return factory(), nil
}

// NewDefaultRegistry returns a Registry pre-populated with the core
// reference TFs (§4.4, §4.4a): threshold, multiplicity, averaging.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("threshold", func() TransferFunction { return &Threshold{} })
	_ = r.Register("multiplicity", func() TransferFunction { return &Multiplicity{} })
	_ = r.Register("averaging", func() TransferFunction { return &Averaging{} })
	return r
}

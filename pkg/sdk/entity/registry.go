package entity

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a fresh, id-less instance of one entity kind
type Factory func() Entity

// Registry maps wire type keys to factories. It is written once at startup
// (usually from init functions of generated packages) and read concurrently
// while responses are materialised.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// DefaultRegistry is the process-wide registry generated packages register into
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register associates a type key with a factory. The factory must produce
// entities whose Type matches the key.
func (r *Registry) Register(typeKey string, factory Factory) error {
	if typeKey == "" || factory == nil {
		return fmt.Errorf("%w: type key and factory are required", ErrInvalidType)
	}

	prototype := factory()
	if prototype == nil {
		return fmt.Errorf("%w: factory for %s returned nil", ErrInvalidType, typeKey)
	}
	if prototype.Type() != typeKey {
		return fmt.Errorf("%w: factory for %s produces type %s", ErrInvalidType, typeKey, prototype.Type())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[typeKey]; exists {
		return fmt.Errorf("%w: %s", ErrTypeRegistered, typeKey)
	}
	r.factories[typeKey] = factory
	return nil
}

// MustRegister is Register for init functions; it panics on error
func (r *Registry) MustRegister(typeKey string, factory Factory) *Registry {
	if err := r.Register(typeKey, factory); err != nil {
		panic(err)
	}
	return r
}

// Get returns the factory registered for a type key
func (r *Registry) Get(typeKey string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[typeKey]
	return factory, ok
}

// NewInstance constructs a fresh entity of the given type, or returns false
// when the type is not registered
func (r *Registry) NewInstance(typeKey string) (Entity, bool) {
	factory, ok := r.Get(typeKey)
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Exists reports whether a type key is registered
func (r *Registry) Exists(typeKey string) bool {
	_, ok := r.Get(typeKey)
	return ok
}

// Types returns the registered type keys in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of registered types
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.factories)
}

// New constructs an entity of the given type from the default registry
func New(typeKey string) (Entity, bool) {
	return DefaultRegistry.NewInstance(typeKey)
}

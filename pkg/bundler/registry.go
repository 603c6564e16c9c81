package bundler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hgpack/hgpack/pkg/bundler/types"
	"github.com/hgpack/hgpack/pkg/bundler/zipapp"
)

// Registry manages registered packaging backends with thread-safe operations.
type Registry struct {
	backends map[types.BackendType]types.Backend

	mu sync.RWMutex
}

// NewRegistry creates a Registry with the built-in backends.
func NewRegistry() *Registry {
	return &Registry{
		backends: map[types.BackendType]types.Backend{
			types.BackendTypeZipapp: zipapp.New(),
		},
	}
}

// Register registers a backend in this registry, replacing any existing one.
func (r *Registry) Register(t types.BackendType, b types.Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[t] = b
}

// Get retrieves a backend by type from this registry.
func (r *Registry) Get(t types.BackendType) (types.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[t]
	return b, ok
}

// List returns all registered backend types, sorted.
func (r *Registry) List() []types.BackendType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]types.BackendType, 0, len(r.backends))
	for k := range r.backends {
		list = append(list, k)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(t types.BackendType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[t]; !ok {
		return fmt.Errorf("backend type %s not registered", t)
	}
	delete(r.backends, t)
	return nil
}

// Count returns the number of registered backends.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.backends)
}

package action

import (
	"sort"
	"sync"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

// Registry maps action ids to their definitions.
// It is safe for concurrent use; writes are expected at startup only.
type Registry struct {
	mu             sync.RWMutex
	defs           map[string]*Definition
	builtinsLoaded bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds or replaces the action def.ID. The registry keeps its own
// copy of def.
func (r *Registry) Register(def Definition) error {
	if err := def.check(); err != nil {
		return sferrors.New("E303").WithDetail(err.Error())
	}
	r.mu.Lock()
	r.defs[def.ID] = def.clone()
	r.mu.Unlock()
	return nil
}

// Get returns the definition for id.
func (r *Registry) Get(id string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// List returns every definition sorted by id.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	out := make([]*Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

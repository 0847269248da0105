package component

import (
	"log/slog"
	"sort"
	"sync"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/node"
)

// Registry maps component type names to their definitions.
// It is safe for concurrent use; writes are expected at startup only.
type Registry struct {
	mu         sync.RWMutex
	defs       map[string]*Definition
	coreLoaded bool
	newID      node.IDFunc
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDFunc sets the id generator used by CreateNode.
func WithIDFunc(fn node.IDFunc) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		defs:   make(map[string]*Definition),
		newID:  node.NewID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the definition for def.Type. The registry keeps
// its own copy, so later changes to def have no effect.
func (r *Registry) Register(def Definition) error {
	if err := def.check(); err != nil {
		return sferrors.New("E202").WithDetail(err.Error())
	}
	stored := def.clone()

	r.mu.Lock()
	_, replaced := r.defs[def.Type]
	r.defs[def.Type] = stored
	r.mu.Unlock()

	r.logger.Debug("component registered", "type", def.Type, "replaced", replaced)
	return nil
}

// Get returns the definition for typ. The result is shared and must not be
// modified.
func (r *Registry) Get(typ string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[typ]
	return def, ok
}

// List returns every definition sorted by type.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	out := make([]*Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	defs := r.List()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Type
	}
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// RegisterCore populates the core component set. It does nothing if the core
// set was already loaded or the registry already holds definitions, and
// reports whether it registered anything.
func (r *Registry) RegisterCore() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.coreLoaded || len(r.defs) > 0 {
		return false
	}
	for _, def := range coreDefinitions() {
		r.defs[def.Type] = def.clone()
	}
	r.coreLoaded = true
	r.logger.Debug("core components registered", "count", len(r.defs))
	return true
}

// CreateNode instantiates typ from its defaults. The default subtree is
// deep-copied and every node in the copy gets a fresh id.
func (r *Registry) CreateNode(typ string) (*node.Node, error) {
	def, ok := r.Get(typ)
	if !ok {
		return nil, sferrors.New("E201").WithDetailf("type %q is not registered", typ)
	}
	if def.Defaults == nil {
		return &node.Node{ID: r.newID(), Type: def.Type}, nil
	}
	n := def.Defaults.CloneWithNewIDs(r.newID)
	n.Type = def.Type
	return n, nil
}

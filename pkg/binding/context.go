package binding

import (
	"context"
	"maps"

	"github.com/vango-dev/storefront/pkg/node"
)

// Well-known sub-context names.
const (
	ScopeStore      = "store"
	ScopeUser       = "user"
	ScopeCart       = "cart"
	ScopeProduct    = "product"
	ScopeCollection = "collection"
	ScopeRoute      = "route"
)

// Context is the request-scoped runtime data bindings resolve against: a map
// of named sub-contexts.
type Context map[string]any

// Clone returns a deep copy of c.
func (c Context) Clone() Context {
	return Context(node.CopyMap(c))
}

// With returns a shallow copy of c with name set to v.
func (c Context) With(name string, v any) Context {
	out := make(Context, len(c)+1)
	maps.Copy(out, c)
	out[name] = v
	return out
}

// Request describes what a runtime context is being built for.
type Request struct {
	StoreID string
	UserID  string
	Kind    string
	Key     string
	Route   map[string]string
}

// Provider assembles the runtime context for a render from the commerce
// domain. Implementations live outside this module.
type Provider interface {
	Build(ctx context.Context, req Request) (Context, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (Context, error)

// Build calls f.
func (f ProviderFunc) Build(ctx context.Context, req Request) (Context, error) {
	return f(ctx, req)
}

// StaticProvider serves a fixed context. The store and route sub-contexts
// are filled from the request when the fixed data lacks them.
type StaticProvider struct {
	Data Context
}

// Build returns a copy of the fixed data.
func (p StaticProvider) Build(_ context.Context, req Request) (Context, error) {
	out := p.Data.Clone()
	if out == nil {
		out = Context{}
	}
	if _, ok := out[ScopeStore]; !ok && req.StoreID != "" {
		out[ScopeStore] = map[string]any{"id": req.StoreID}
	}
	if _, ok := out[ScopeUser]; !ok && req.UserID != "" {
		out[ScopeUser] = map[string]any{"id": req.UserID}
	}
	if _, ok := out[ScopeRoute]; !ok && len(req.Route) > 0 {
		route := make(map[string]any, len(req.Route))
		for k, v := range req.Route {
			route[k] = v
		}
		out[ScopeRoute] = route
	}
	return out, nil
}

package render

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/action"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/component"
	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/node"
)

// DefaultMaxPrefabDepth bounds nested PrefabRef expansion.
const DefaultMaxPrefabDepth = 4

// ElementIDSeparator joins a PrefabRef's element id to the ids of the
// prefab nodes inlined under it, so a prefab used twice on one page yields
// distinct element ids ("ref1/btn", "ref2/btn").
const ElementIDSeparator = "/"

// Source is the read side of the document store a Renderer needs.
type Source interface {
	GetPublished(ctx context.Context, storeID string, kind document.Kind, key string) (*document.Document, bool, error)
	GetPublishedOrFallback(ctx context.Context, storeID string, kind document.Kind, key, prefabKey string) (*document.Document, bool, error)
	GetThemePublished(ctx context.Context, storeID string) (*document.Theme, bool, error)
}

// Config configures a Renderer.
type Config struct {
	// ExpandPrefabs inlines the published PREFAB named by each PrefabRef
	// node as that node's only child.
	ExpandPrefabs bool

	// MaxPrefabDepth limits nested expansion. Defaults to
	// DefaultMaxPrefabDepth.
	MaxPrefabDepth int
}

// Renderer resolves published documents against runtime data.
type Renderer struct {
	source     Source
	provider   binding.Provider
	dispatcher *action.Dispatcher
	config     Config
	logger     *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDispatcher enables Dispatch.
func WithDispatcher(d *action.Dispatcher) Option {
	return func(r *Renderer) {
		r.dispatcher = d
	}
}

// WithConfig sets the renderer configuration.
func WithConfig(c Config) Option {
	return func(r *Renderer) {
		r.config = c
	}
}

// NewRenderer creates a renderer reading from source. A nil provider
// serves an empty context filled from the request.
func NewRenderer(source Source, provider binding.Provider, opts ...Option) *Renderer {
	if provider == nil {
		provider = binding.StaticProvider{}
	}
	r := &Renderer{
		source:   source,
		provider: provider,
		config:   Config{ExpandPrefabs: true},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.config.MaxPrefabDepth <= 0 {
		r.config.MaxPrefabDepth = DefaultMaxPrefabDepth
	}
	return r
}

// Request names the document to render and the caller's runtime data.
type Request struct {
	StoreID string
	UserID  string
	Kind    document.Kind
	Key     string

	// Fallback is the PREFAB key served when the document is not
	// published. Empty disables the fallback.
	Fallback string

	Route map[string]string

	// Context entries replace the provider's sub-contexts of the same name.
	Context binding.Context
}

// Element is a node with its bindings resolved. Elements inlined from a
// prefab carry their PrefabRef's element id as a prefix.
type Element struct {
	ID       string                    `json:"id"`
	Type     string                    `json:"type"`
	Props    map[string]any            `json:"props,omitempty"`
	Styles   node.Styles               `json:"styles,omitzero"`
	Actions  map[string]node.ActionRef `json:"actions,omitempty"`
	Children []*Element                `json:"children,omitempty"`

	// Unresolved lists bound props whose path had no value in the
	// context; their static value, if any, is in Props.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Page is a rendered document.
type Page struct {
	StoreID  string            `json:"storeId"`
	Kind     document.Kind     `json:"kind"`
	Key      string            `json:"key"`
	Version  int64             `json:"version"`
	Fallback bool              `json:"fallback,omitempty"`
	Theme    map[string]string `json:"theme,omitempty"`
	Root     *Element          `json:"root"`
}

// Render fetches the published document named by req (or the fallback
// prefab), builds the runtime context and resolves every node's bindings.
// No published document yields ErrDocumentNotFound.
func (r *Renderer) Render(ctx context.Context, req Request) (*Page, error) {
	doc, err := r.lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	rc, err := r.Context(ctx, req)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{string(doc.Kind) + "/" + doc.Key: true}
	page := &Page{
		StoreID:  doc.StoreID,
		Kind:     doc.Kind,
		Key:      doc.Key,
		Version:  doc.Version,
		Fallback: doc.Kind != req.Kind || doc.Key != req.Key,
		Root:     r.resolve(ctx, req.StoreID, doc.Tree, rc, visited, 0, ""),
	}

	theme, ok, err := r.source.GetThemePublished(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}
	if ok {
		page.Theme = theme.Variables
	}
	return page, nil
}

func (r *Renderer) lookup(ctx context.Context, req Request) (*document.Document, error) {
	doc, ok, err := r.source.GetPublishedOrFallback(ctx, req.StoreID, req.Kind, req.Key, req.Fallback)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sferrors.New("E403").
			WithDetailf("%s %q has no published version", req.Kind, req.Key).
			WithLocation(req.StoreID, string(req.Kind), req.Key, "")
	}
	return doc, nil
}

// Context builds the runtime context for req.
func (r *Renderer) Context(ctx context.Context, req Request) (binding.Context, error) {
	rc, err := r.provider.Build(ctx, binding.Request{
		StoreID: req.StoreID,
		UserID:  req.UserID,
		Kind:    string(req.Kind),
		Key:     req.Key,
		Route:   req.Route,
	})
	if err != nil {
		return nil, fmt.Errorf("build runtime context: %w", err)
	}
	if rc == nil {
		rc = binding.Context{}
	}
	for name, v := range req.Context {
		rc = rc.With(name, v)
	}
	return rc, nil
}

func (r *Renderer) resolve(ctx context.Context, storeID string, n *node.Node, rc binding.Context, visited map[string]bool, depth int, prefix string) *Element {
	if n == nil {
		return nil
	}
	overlay := binding.ResolveBindings(n.Bindings, rc)
	props := node.CopyMap(n.Props)
	if props == nil {
		props = make(map[string]any, len(overlay))
	}
	for k, v := range overlay {
		props[k] = node.CopyValue(v)
	}
	el := &Element{
		ID:     prefix + n.ID,
		Type:   n.Type,
		Props:  props,
		Styles: n.Styles.Clone(),
	}
	for prop := range n.Bindings {
		if _, ok := overlay[prop]; !ok {
			el.Unresolved = append(el.Unresolved, prop)
		}
	}
	sort.Strings(el.Unresolved)

	if len(n.Actions) > 0 {
		el.Actions = make(map[string]node.ActionRef, len(n.Actions))
		for slot, ref := range n.Actions {
			el.Actions[slot] = ref.Clone()
		}
	}
	for _, c := range n.Children {
		if child := r.resolve(ctx, storeID, c, rc, visited, depth, prefix); child != nil {
			el.Children = append(el.Children, child)
		}
	}

	if n.Type == component.TypePrefabRef && r.config.ExpandPrefabs {
		if tree, leave := r.enterPrefab(ctx, storeID, el.ID, props, visited, depth); tree != nil {
			child := r.resolve(ctx, storeID, tree, rc, visited, depth+1, el.ID+ElementIDSeparator)
			leave()
			if child != nil {
				el.Children = append(el.Children, child)
			}
		}
	}
	return el
}

// enterPrefab loads the published prefab a PrefabRef with the given
// effective props points at and marks it as being expanded. It returns a
// nil tree when the reference is empty, cyclic, too deep or unpublished;
// otherwise the caller must call leave once done with the tree.
func (r *Renderer) enterPrefab(ctx context.Context, storeID, elementID string, props map[string]any, visited map[string]bool, depth int) (tree *node.Node, leave func()) {
	key, _ := props["prefabKey"].(string)
	id := string(document.KindPrefab) + "/" + key
	switch {
	case key == "":
		return nil, nil
	case visited[id]:
		r.logger.Warn("prefab reference cycle", "store", storeID, "prefab", key, "node", elementID)
		return nil, nil
	case depth >= r.config.MaxPrefabDepth:
		r.logger.Warn("prefab nesting too deep", "store", storeID, "prefab", key, "depth", depth)
		return nil, nil
	}

	doc, ok, err := r.source.GetPublished(ctx, storeID, document.KindPrefab, key)
	if err != nil {
		r.logger.Error("load prefab", "store", storeID, "prefab", key, "error", err)
		return nil, nil
	}
	if !ok || doc.Tree == nil {
		r.logger.Debug("prefab not published", "store", storeID, "prefab", key)
		return nil, nil
	}

	visited[id] = true
	return doc.Tree, func() { delete(visited, id) }
}

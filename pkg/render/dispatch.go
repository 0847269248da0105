package render

import (
	"context"
	"errors"
	"strings"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/action"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/component"
	"github.com/vango-dev/storefront/pkg/node"
)

// ErrNoDispatcher is returned by Dispatch on a renderer built without one.
var ErrNoDispatcher = errors.New("render: no action dispatcher configured")

// DispatchResult reports the side effects of a dispatched action that the
// client must apply.
type DispatchResult struct {
	ActionID string `json:"actionId"`
	Navigate string `json:"navigate,omitempty"`
}

// Dispatch runs the action bound to slot on the element nodeID of the
// published document named by req, with req's runtime context. nodeID is
// an Element id as Render reports it, so nodes inlined from prefabs are
// addressed through their PrefabRef ("ref/btn").
//
// A node missing from the rendered tree fails with ErrDocumentNotFound; a
// slot with no action bound fails with ErrUnknownAction. Handler errors are
// returned as the dispatcher reports them.
func (r *Renderer) Dispatch(ctx context.Context, req Request, nodeID, slot string) (*DispatchResult, error) {
	if r.dispatcher == nil {
		return nil, ErrNoDispatcher
	}
	doc, err := r.lookup(ctx, req)
	if err != nil {
		return nil, err
	}

	rc, err := r.Context(ctx, req)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{string(doc.Kind) + "/" + doc.Key: true}
	n := r.locate(ctx, req.StoreID, doc.Tree, nodeID, rc, visited, 0, "")
	if n == nil {
		return nil, sferrors.New("E403").
			WithDetailf("node %q is not in %s %q", nodeID, doc.Kind, doc.Key).
			WithLocation(req.StoreID, string(doc.Kind), doc.Key, nodeID)
	}
	ref, ok := n.Actions[slot]
	if !ok || ref.ActionID == "" {
		return nil, sferrors.New("E301").
			WithDetailf("no action bound to %s.%s", nodeID, slot).
			WithNode(nodeID)
	}

	ctx, nav := action.WithNavigation(ctx)
	if err := r.dispatcher.Dispatch(ctx, ref, rc); err != nil {
		return nil, err
	}
	return &DispatchResult{ActionID: ref.ActionID, Navigate: nav.Target()}, nil
}

// locate finds the node whose element id is target, expanding prefabs the
// way resolve does.
func (r *Renderer) locate(ctx context.Context, storeID string, n *node.Node, target string, rc binding.Context, visited map[string]bool, depth int, prefix string) *node.Node {
	if n == nil {
		return nil
	}
	id := prefix + n.ID
	if id == target {
		return n
	}
	for _, c := range n.Children {
		if found := r.locate(ctx, storeID, c, target, rc, visited, depth, prefix); found != nil {
			return found
		}
	}

	inner := id + ElementIDSeparator
	if n.Type != component.TypePrefabRef || !r.config.ExpandPrefabs || !strings.HasPrefix(target, inner) {
		return nil
	}
	tree, leave := r.enterPrefab(ctx, storeID, id, binding.EffectiveProps(n, rc), visited, depth)
	if tree == nil {
		return nil
	}
	defer leave()
	return r.locate(ctx, storeID, tree, target, rc, visited, depth+1, inner)
}

// Package render resolves published storefront documents for display.
//
// Rendering here stops at data: the result is an Element tree whose props
// already carry the values bound from the runtime context. Turning elements
// into markup is the client's job.
//
//	r := render.NewRenderer(store, provider, render.WithDispatcher(d))
//
//	page, err := r.Render(ctx, render.Request{
//	    StoreID:  "s1",
//	    Kind:     document.KindPage,
//	    Key:      "product",
//	    Fallback: "not-found",
//	})
//
// PrefabRef nodes are expanded in place with the referenced PREFAB's
// published tree, up to Config.MaxPrefabDepth levels and never into a
// prefab already being expanded. Inlined elements get the id of their
// PrefabRef element as a prefix ("ref/node"), which Dispatch accepts.
//
// Dispatch runs the action bound to one slot of one node, so a client only
// ever sends (node id, slot), never an action payload.
package render

// Package node provides the document tree used by storefront pages, prefabs
// and layouts.
//
// A document is a single rooted tree of Node values. Each node has a
// registered component type, static props, layered styles, bindings from
// prop names to runtime-context paths, action references per interaction
// slot, and an ordered list of children.
//
// # Immutable Updates
//
// The tree operations never modify their input. Find and Contains are plain
// lookups; Update, Remove, Insert, InsertAt and Move return a new root and
// rebuild only the nodes on the path to the change, sharing every other
// subtree with the input. An id that is not in the tree makes the operation
// a no-op that returns the input root itself:
//
//	root = node.Insert(root, "hero", heading)
//	root = node.Move(root, heading.ID, "footer")
//	root = node.Update(root, heading.ID, func(n *node.Node) *node.Node {
//	    n.Props["text"] = "Summer sale"
//	    return n
//	})
//
// Callers must treat nodes reachable from a root as read-only. Update hands
// the updater a private deep copy, so mutating it there is safe.
//
// # Validation and Diffing
//
// Validate reports structural problems (empty or duplicate ids, nil
// children). Diff compares two versions of a document by node id and
// reports added, removed, moved and updated nodes.
package node

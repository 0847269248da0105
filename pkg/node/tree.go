package node

// Find returns the node with the given id using a depth-first, pre-order
// search.
func Find(root *Node, id string) (*Node, bool) {
	if root == nil {
		return nil, false
	}
	if root.ID == id {
		return root, true
	}
	for _, c := range root.Children {
		if n, ok := Find(c, id); ok {
			return n, true
		}
	}
	return nil, false
}

// Contains reports whether id is root itself or any of its descendants.
func Contains(root *Node, id string) bool {
	_, ok := Find(root, id)
	return ok
}

// ParentOf returns the parent of id and the child's index within it.
// The root has no parent.
func ParentOf(root *Node, id string) (*Node, int, bool) {
	if root == nil {
		return nil, -1, false
	}
	for i, c := range root.Children {
		if c != nil && c.ID == id {
			return root, i, true
		}
		if p, idx, ok := ParentOf(c, id); ok {
			return p, idx, true
		}
	}
	return nil, -1, false
}

// Walk visits the tree in pre-order. Returning false from fn skips the
// node's children.
func Walk(root *Node, fn func(n *Node, depth int) bool) {
	walk(root, 0, fn)
}

func walk(n *Node, depth int, fn func(*Node, int) bool) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// IDs returns every node id in pre-order.
func IDs(root *Node) []string {
	var ids []string
	Walk(root, func(n *Node, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Count returns the number of nodes in the tree.
func Count(root *Node) int {
	count := 0
	Walk(root, func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// Update returns a tree in which the node with the given id is replaced by
// fn(copy). fn receives a deep copy it may modify freely. Nodes on the path
// to the root are rebuilt; all other subtrees are shared. If id is absent,
// or fn returns nil, root is returned unchanged.
func Update(root *Node, id string, fn func(*Node) *Node) *Node {
	if root == nil || fn == nil {
		return root
	}
	out, changed := update(root, id, fn)
	if !changed {
		return root
	}
	return out
}

func update(n *Node, id string, fn func(*Node) *Node) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.ID == id {
		next := fn(n.Clone())
		if next == nil {
			return n, false
		}
		return next, true
	}
	for i, c := range n.Children {
		if next, ok := update(c, id, fn); ok {
			cp := n.shallow()
			cp.Children[i] = next
			return cp, true
		}
	}
	return n, false
}

// Remove returns a tree without the node with the given id (and its
// subtree). The root itself cannot be removed; asking for it, or for an id
// that is not present, returns root unchanged.
func Remove(root *Node, id string) *Node {
	if root == nil || root.ID == id {
		return root
	}
	out, changed := remove(root, id)
	if !changed {
		return root
	}
	return out
}

func remove(n *Node, id string) (*Node, bool) {
	for i, c := range n.Children {
		if c == nil {
			continue
		}
		if c.ID == id {
			cp := n.shallow()
			cp.Children = append(cp.Children[:i:i], cp.Children[i+1:]...)
			return cp, true
		}
		if next, ok := remove(c, id); ok {
			cp := n.shallow()
			cp.Children[i] = next
			return cp, true
		}
	}
	return n, false
}

// Insert appends child as the last child of parentID. If parentID is not in
// the tree, root is returned unchanged.
func Insert(root *Node, parentID string, child *Node) *Node {
	return InsertAt(root, parentID, -1, child)
}

// InsertAt inserts child at position index among parentID's children.
// A negative or out-of-range index appends.
func InsertAt(root *Node, parentID string, index int, child *Node) *Node {
	if root == nil || child == nil {
		return root
	}
	out, changed := insert(root, parentID, index, child)
	if !changed {
		return root
	}
	return out
}

func insert(n *Node, parentID string, index int, child *Node) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if n.ID == parentID {
		cp := n.shallow()
		if index < 0 || index >= len(cp.Children) {
			cp.Children = append(cp.Children, child)
		} else {
			cp.Children = append(cp.Children[:index:index], append([]*Node{child}, cp.Children[index:]...)...)
		}
		return cp, true
	}
	for i, c := range n.Children {
		if next, ok := insert(c, parentID, index, child); ok {
			cp := n.shallow()
			cp.Children[i] = next
			return cp, true
		}
	}
	return n, false
}

// Move relocates nodeID to become the last child of targetParentID.
//
// The tree is returned unchanged when nodeID equals targetParentID, when
// nodeID is not in the tree, when targetParentID lies inside the subtree
// being moved (which would create a cycle), or when targetParentID is not
// in the tree.
func Move(root *Node, nodeID, targetParentID string) *Node {
	if nodeID == targetParentID {
		return root
	}
	moving, ok := Find(root, nodeID)
	if !ok {
		return root
	}
	if Contains(moving, targetParentID) {
		return root
	}
	if !Contains(root, targetParentID) {
		return root
	}
	return Insert(Remove(root, nodeID), targetParentID, moving)
}

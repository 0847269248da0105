package node

import (
	"fmt"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

// Validate checks the structural invariants of a tree: every node has an id
// and a type, ids are unique, and no child slot is nil. Every violation found
// is returned; a nil result means the tree is well formed.
func Validate(root *Node) []sferrors.Violation {
	if root == nil {
		return []sferrors.Violation{{Message: "document has no root node"}}
	}

	var out []sferrors.Violation
	seen := make(map[string]int)
	Walk(root, func(n *Node, _ int) bool {
		if n.ID == "" {
			out = append(out, sferrors.Violation{Field: "id", Message: fmt.Sprintf("%s node has an empty id", typeName(n))})
		} else {
			seen[n.ID]++
			if seen[n.ID] == 2 {
				out = append(out, sferrors.Violation{NodeID: n.ID, Field: "id", Message: "duplicate node id"})
			}
		}
		if n.Type == "" {
			out = append(out, sferrors.Violation{NodeID: n.ID, Field: "type", Message: "node has no type"})
		}
		for i, c := range n.Children {
			if c == nil {
				out = append(out, sferrors.Violation{NodeID: n.ID, Field: fmt.Sprintf("children[%d]", i), Message: "child is nil"})
			}
		}
		return true
	})
	return out
}

func typeName(n *Node) string {
	if n.Type == "" {
		return "untyped"
	}
	return n.Type
}

package node

import (
	"reflect"
	"sort"
)

// ChangeOp is the kind of structural change between two trees.
type ChangeOp uint8

const (
	ChangeAdded   ChangeOp = iota + 1 // Node exists only in next
	ChangeRemoved                     // Node exists only in prev
	ChangeMoved                       // Parent or sibling position changed
	ChangeUpdated                     // Type, props, styles, bindings or actions changed
)

// String returns the string representation of the ChangeOp.
func (op ChangeOp) String() string {
	switch op {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeMoved:
		return "moved"
	case ChangeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// MarshalText lets ChangeOp serialize as its name.
func (op ChangeOp) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// Change describes how one node differs between two trees.
type Change struct {
	Op       ChangeOp `json:"op"`
	NodeID   string   `json:"nodeId"`
	ParentID string   `json:"parentId,omitempty"` // Parent in next (prev for removals)
	Fields   []string `json:"fields,omitempty"`   // Changed fields for updates
}

type position struct {
	node   *Node
	parent string
}

func positions(root *Node) map[string]position {
	out := make(map[string]position)
	var visit func(n *Node, parent string)
	visit = func(n *Node, parent string) {
		if n == nil {
			return
		}
		if _, dup := out[n.ID]; !dup {
			out[n.ID] = position{node: n, parent: parent}
		}
		for _, c := range n.Children {
			visit(c, n.ID)
		}
	}
	visit(root, "")
	return out
}

// Diff compares two trees by node id. A node may produce both a moved and an
// updated change. Changes are ordered by node id, then by op.
func Diff(prev, next *Node) []Change {
	before := positions(prev)
	after := positions(next)

	var changes []Change
	for id, p := range before {
		if _, ok := after[id]; !ok {
			changes = append(changes, Change{Op: ChangeRemoved, NodeID: id, ParentID: p.parent})
		}
	}
	for id, n := range after {
		p, ok := before[id]
		if !ok {
			changes = append(changes, Change{Op: ChangeAdded, NodeID: id, ParentID: n.parent})
			continue
		}
		if p.parent != n.parent || rank(prev, id, after) != rank(next, id, before) {
			changes = append(changes, Change{Op: ChangeMoved, NodeID: id, ParentID: n.parent})
		}
		if fields := changedFields(p.node, n.node); len(fields) > 0 {
			changes = append(changes, Change{Op: ChangeUpdated, NodeID: id, ParentID: n.parent, Fields: fields})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].NodeID != changes[j].NodeID {
			return changes[i].NodeID < changes[j].NodeID
		}
		return changes[i].Op < changes[j].Op
	})
	return changes
}

// rank returns id's position among those siblings that sit under the same
// parent in other. Insertions and removals around a node are not moves.
func rank(root *Node, id string, other map[string]position) int {
	parent, _, ok := ParentOf(root, id)
	if !ok {
		return 0
	}
	r := 0
	for _, c := range parent.Children {
		if c == nil {
			continue
		}
		if c.ID == id {
			return r
		}
		if pos, shared := other[c.ID]; shared && pos.parent == parent.ID {
			r++
		}
	}
	return r
}

func changedFields(a, b *Node) []string {
	var fields []string
	if a.Type != b.Type {
		fields = append(fields, "type")
	}
	if !mapsEqual(a.Props, b.Props) {
		fields = append(fields, "props")
	}
	if !reflect.DeepEqual(normStyles(a.Styles), normStyles(b.Styles)) {
		fields = append(fields, "styles")
	}
	if len(a.Bindings) != 0 || len(b.Bindings) != 0 {
		if !reflect.DeepEqual(a.Bindings, b.Bindings) {
			fields = append(fields, "bindings")
		}
	}
	if len(a.Actions) != 0 || len(b.Actions) != 0 {
		if !reflect.DeepEqual(a.Actions, b.Actions) {
			fields = append(fields, "actions")
		}
	}
	return fields
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// normStyles maps empty layers to nil so that {} and absent compare equal.
func normStyles(s Styles) Styles {
	if s.IsZero() {
		return Styles{}
	}
	if len(s.Base) == 0 {
		s.Base = nil
	}
	if len(s.Breakpoints) == 0 {
		s.Breakpoints = nil
	}
	if len(s.States) == 0 {
		s.States = nil
	}
	return s
}

package node

import "github.com/google/uuid"

// Node is one element of a document tree.
type Node struct {
	ID       string               `json:"id" yaml:"id"`
	Type     string               `json:"type" yaml:"type"`
	Props    map[string]any       `json:"props,omitempty" yaml:"props,omitempty"`
	Styles   Styles               `json:"styles,omitzero" yaml:"styles,omitempty"`
	Bindings map[string]string    `json:"bindings,omitempty" yaml:"bindings,omitempty"`
	Actions  map[string]ActionRef `json:"actions,omitempty" yaml:"actions,omitempty"`
	Children []*Node              `json:"children,omitempty" yaml:"children,omitempty"`
}

// Styles holds a base style layer plus optional overrides keyed by
// breakpoint ("md", "lg") and by interaction state ("hover", "focus").
type Styles struct {
	Base        map[string]any            `json:"base,omitempty" yaml:"base,omitempty"`
	Breakpoints map[string]map[string]any `json:"breakpoints,omitempty" yaml:"breakpoints,omitempty"`
	States      map[string]map[string]any `json:"states,omitempty" yaml:"states,omitempty"`
}

// IsZero reports whether no style layer is set.
func (s Styles) IsZero() bool {
	return len(s.Base) == 0 && len(s.Breakpoints) == 0 && len(s.States) == 0
}

// Clone returns a deep copy of the style layers.
func (s Styles) Clone() Styles {
	return Styles{
		Base:        CopyMap(s.Base),
		Breakpoints: copyLayers(s.Breakpoints),
		States:      copyLayers(s.States),
	}
}

// ActionRef names a registered action and the literal payload to pass it.
type ActionRef struct {
	ActionID string         `json:"actionId" yaml:"actionId"`
	Payload  map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Clone returns a deep copy of the reference.
func (r ActionRef) Clone() ActionRef {
	return ActionRef{ActionID: r.ActionID, Payload: CopyMap(r.Payload)}
}

// IDFunc generates node ids.
type IDFunc func() string

// NewID returns a fresh random node id.
func NewID() string {
	return uuid.NewString()
}

// New creates a node of the given type with a fresh id and no content.
func New(typ string) *Node {
	return &Node{ID: NewID(), Type: typ}
}

// Clone returns a deep copy of the subtree rooted at n. Ids are preserved.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		ID:       n.ID,
		Type:     n.Type,
		Props:    CopyMap(n.Props),
		Styles:   n.Styles.Clone(),
		Bindings: copyStrings(n.Bindings),
	}
	if n.Actions != nil {
		out.Actions = make(map[string]ActionRef, len(n.Actions))
		for slot, ref := range n.Actions {
			out.Actions[slot] = ref.Clone()
		}
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// CloneWithNewIDs deep-copies the subtree and assigns every copied node a
// new id from gen (NewID when nil).
func (n *Node) CloneWithNewIDs(gen IDFunc) *Node {
	if gen == nil {
		gen = NewID
	}
	out := n.Clone()
	Walk(out, func(c *Node, _ int) bool {
		c.ID = gen()
		return true
	})
	return out
}

// shallow copies n with its own children slice; maps are shared.
func (n *Node) shallow() *Node {
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		copy(cp.Children, n.Children)
	}
	return &cp
}

// CopyMap deep-copies a JSON-compatible map. Nested map[string]any and []any
// values are copied; other values are treated as immutable.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CopyValue(v)
	}
	return out
}

// CopyValue deep-copies a JSON-compatible value.
func CopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CopyValue(e)
		}
		return out
	case map[string]string:
		return copyStrings(t)
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = CopyMap(e)
		}
		return out
	default:
		return v
	}
}

func copyStrings(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyLayers(m map[string]map[string]any) map[string]map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(m))
	for k, v := range m {
		out[k] = CopyMap(v)
	}
	return out
}

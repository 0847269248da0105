package document

import (
	"fmt"
	"sort"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/action"
	"github.com/vango-dev/storefront/pkg/component"
	"github.com/vango-dev/storefront/pkg/node"
)

// Validator checks a tree before it is saved as a draft.
type Validator interface {
	Validate(tree *node.Node) []sferrors.Violation
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(tree *node.Node) []sferrors.Violation

// Validate calls f.
func (f ValidatorFunc) Validate(tree *node.Node) []sferrors.Violation {
	return f(tree)
}

// Chain runs validators in order and returns the violations of the first
// one that reports any. Later rules can assume earlier ones held.
func Chain(vs ...Validator) Validator {
	return ValidatorFunc(func(tree *node.Node) []sferrors.Violation {
		for _, v := range vs {
			if out := v.Validate(tree); len(out) > 0 {
				return out
			}
		}
		return nil
	})
}

// Structure checks tree invariants only: a root, ids, types, uniqueness.
var Structure Validator = ValidatorFunc(node.Validate)

// Schema validates every node against its component definition.
func Schema(reg *component.Registry) Validator {
	return ValidatorFunc(reg.ValidateNode)
}

// ActionsRegistered reports action references to ids reg does not know.
func ActionsRegistered(reg *action.Registry) Validator {
	return ValidatorFunc(func(tree *node.Node) []sferrors.Violation {
		var out []sferrors.Violation
		node.Walk(tree, func(n *node.Node, _ int) bool {
			for _, slot := range sortedSlots(n.Actions) {
				ref := n.Actions[slot]
				if ref.ActionID != "" && !reg.Has(ref.ActionID) {
					out = append(out, sferrors.Violation{
						NodeID:  n.ID,
						Field:   "actions." + slot,
						Message: fmt.Sprintf("action %q is not registered", ref.ActionID),
					})
				}
			}
			return true
		})
		return out
	})
}

// PageRules requires the root to be a layout component and Slot names to be
// unique within the page.
func PageRules(reg *component.Registry) Validator {
	return ValidatorFunc(func(tree *node.Node) []sferrors.Violation {
		var out []sferrors.Violation
		if def, ok := reg.Get(tree.Type); ok && def.Category != component.CategoryLayout {
			out = append(out, sferrors.Violation{
				NodeID:  tree.ID,
				Field:   "type",
				Message: fmt.Sprintf("page root must be a layout component, got %s (%s)", tree.Type, def.Category),
			})
		}
		return append(out, uniqueSlots(tree)...)
	})
}

// LayoutRules requires at least one Slot and unique Slot names.
func LayoutRules() Validator {
	return ValidatorFunc(func(tree *node.Node) []sferrors.Violation {
		if len(slotNodes(tree)) == 0 {
			return []sferrors.Violation{{
				NodeID:  tree.ID,
				Field:   "children",
				Message: "layout must contain at least one Slot",
			}}
		}
		return uniqueSlots(tree)
	})
}

// DefaultValidators returns the per-kind rules for documents built from reg's
// components. actions may be nil to skip action id checks.
func DefaultValidators(reg *component.Registry, actions *action.Registry) map[Kind]Validator {
	schema := []Validator{Structure, Schema(reg)}
	if actions != nil {
		schema = append(schema, ActionsRegistered(actions))
	}
	with := func(extra ...Validator) Validator {
		return Chain(append(append([]Validator{}, schema...), extra...)...)
	}
	return map[Kind]Validator{
		KindPage:   with(PageRules(reg)),
		KindPrefab: with(),
		KindTheme:  with(),
		KindLayout: with(LayoutRules()),
	}
}

func slotNodes(tree *node.Node) []*node.Node {
	var out []*node.Node
	node.Walk(tree, func(n *node.Node, _ int) bool {
		if n.Type == component.TypeSlot {
			out = append(out, n)
		}
		return true
	})
	return out
}

func uniqueSlots(tree *node.Node) []sferrors.Violation {
	var out []sferrors.Violation
	seen := make(map[string]bool)
	for _, s := range slotNodes(tree) {
		name, _ := s.Props["name"].(string)
		if seen[name] {
			out = append(out, sferrors.Violation{
				NodeID:  s.ID,
				Field:   "props.name",
				Message: fmt.Sprintf("slot %q is declared more than once", name),
			})
		}
		seen[name] = true
	}
	return out
}

func sortedSlots(m map[string]node.ActionRef) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

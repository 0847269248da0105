package component

import (
	"fmt"
	"sort"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/node"
)

// ValidateNode checks n and its descendants against the registered schemas
// and returns every violation found.
//
// A node is valid when its type is registered, its required props are set
// (statically or through a binding), its props have the declared kinds, only
// bindable props are bound (to well-formed paths), actions sit in declared
// slots, style keys are declared, and its children satisfy the slot rule.
func (r *Registry) ValidateNode(n *node.Node) []sferrors.Violation {
	var out []sferrors.Violation
	node.Walk(n, func(c *node.Node, _ int) bool {
		out = append(out, r.validateOne(c)...)
		return true
	})
	return out
}

func (r *Registry) validateOne(n *node.Node) []sferrors.Violation {
	def, ok := r.Get(n.Type)
	if !ok {
		return []sferrors.Violation{{NodeID: n.ID, Field: "type", Message: fmt.Sprintf("unknown component type %q", n.Type)}}
	}

	var out []sferrors.Violation
	add := func(field, format string, args ...any) {
		out = append(out, sferrors.Violation{NodeID: n.ID, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for _, name := range sortedKeys(def.Props) {
		spec := def.Props[name]
		v, present := n.Props[name]
		if !present {
			if _, bound := n.Bindings[name]; spec.Required && !bound {
				add("props."+name, "required prop is missing")
			}
			continue
		}
		if !spec.Accepts(v) {
			add("props."+name, "expected %s, got %s", spec.Kind, node.KindOf(v))
		}
	}

	for _, prop := range sortedKeys(n.Bindings) {
		if !def.Bindable(prop) {
			add("bindings."+prop, "prop is not bindable on %s", def.Type)
			continue
		}
		if _, err := binding.ParsePath(n.Bindings[prop]); err != nil {
			add("bindings."+prop, "invalid binding path %q", n.Bindings[prop])
		}
	}

	for _, slot := range sortedKeys(n.Actions) {
		if !def.HasActionSlot(slot) {
			add("actions."+slot, "%s has no action slot %q", def.Type, slot)
			continue
		}
		if n.Actions[slot].ActionID == "" {
			add("actions."+slot, "action reference has no action id")
		}
	}

	if len(def.StyleKeys) > 0 {
		check := func(layer string, styles map[string]any) {
			for _, k := range sortedKeys(styles) {
				if !contains(def.StyleKeys, k) {
					add("styles."+layer+"."+k, "style key is not supported by %s", def.Type)
				}
			}
		}
		check("base", n.Styles.Base)
		for _, bp := range sortedKeys(n.Styles.Breakpoints) {
			check("breakpoints."+bp, n.Styles.Breakpoints[bp])
		}
		for _, st := range sortedKeys(n.Styles.States) {
			check("states."+st, n.Styles.States[st])
		}
	}

	out = append(out, checkSlots(def, n)...)
	return out
}

func checkSlots(def *Definition, n *node.Node) []sferrors.Violation {
	var out []sferrors.Violation
	count := len(n.Children)
	if def.Slots == nil {
		if count > 0 {
			out = append(out, sferrors.Violation{NodeID: n.ID, Field: "children", Message: fmt.Sprintf("%s does not accept children", def.Type)})
		}
		return out
	}
	rule := def.Slots
	if count < rule.Min {
		out = append(out, sferrors.Violation{NodeID: n.ID, Field: "children", Message: fmt.Sprintf("needs at least %d children, has %d", rule.Min, count)})
	}
	if rule.Max > 0 && count > rule.Max {
		out = append(out, sferrors.Violation{NodeID: n.ID, Field: "children", Message: fmt.Sprintf("accepts at most %d children, has %d", rule.Max, count)})
	}
	for i, c := range n.Children {
		if c != nil && !rule.allows(c.Type) {
			out = append(out, sferrors.Violation{NodeID: n.ID, Field: fmt.Sprintf("children[%d]", i), Message: fmt.Sprintf("%s is not allowed inside %s", c.Type, def.Type)})
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

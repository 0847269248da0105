package component

import (
	"fmt"

	"github.com/vango-dev/storefront/pkg/node"
)

// Category groups components in an editor palette.
type Category string

const (
	CategoryLayout   Category = "layout"
	CategoryContent  Category = "content"
	CategoryMedia    Category = "media"
	CategoryAction   Category = "action"
	CategoryCommerce Category = "commerce"
	CategoryStruct   Category = "structure"
)

// PropKind is the JSON kind a prop value must have.
type PropKind = node.ValueKind

const (
	KindAny     = node.KindAny
	KindString  = node.KindString
	KindNumber  = node.KindNumber
	KindBoolean = node.KindBoolean
	KindObject  = node.KindObject
	KindArray   = node.KindArray
)

// PropSpec declares one prop of a component.
type PropSpec struct {
	Kind        PropKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Accepts reports whether v has the declared kind.
func (s PropSpec) Accepts(v any) bool {
	return s.Kind.Accepts(v)
}

// SlotRule constrains a component's children. Max of 0 means no upper bound;
// an empty Allow list accepts every type.
type SlotRule struct {
	Min   int      `json:"min,omitempty" yaml:"min,omitempty"`
	Max   int      `json:"max,omitempty" yaml:"max,omitempty"`
	Allow []string `json:"allow,omitempty" yaml:"allow,omitempty"`
}

func (r *SlotRule) allows(typ string) bool {
	if len(r.Allow) == 0 {
		return true
	}
	for _, a := range r.Allow {
		if a == typ {
			return true
		}
	}
	return false
}

// Definition describes a component type: its schema and its default subtree.
// A nil Slots means the component takes no children.
type Definition struct {
	Type        string              `json:"type" yaml:"type"`
	Category    Category            `json:"category" yaml:"category"`
	Label       string              `json:"label,omitempty" yaml:"label,omitempty"`
	Props       map[string]PropSpec `json:"props,omitempty" yaml:"props,omitempty"`
	StyleKeys   []string            `json:"styleKeys,omitempty" yaml:"styleKeys,omitempty"`
	BindingKeys []string            `json:"bindingKeys,omitempty" yaml:"bindingKeys,omitempty"`
	ActionSlots []string            `json:"actionSlots,omitempty" yaml:"actionSlots,omitempty"`
	Slots       *SlotRule           `json:"slots,omitempty" yaml:"slots,omitempty"`
	Defaults    *node.Node          `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// AcceptsChildren reports whether the component has a slot for children.
func (d *Definition) AcceptsChildren() bool {
	return d.Slots != nil
}

// Bindable reports whether prop may be bound to a context path.
func (d *Definition) Bindable(prop string) bool {
	return contains(d.BindingKeys, prop)
}

// HasActionSlot reports whether the component declares the action slot.
func (d *Definition) HasActionSlot(slot string) bool {
	return contains(d.ActionSlots, slot)
}

func (d *Definition) check() error {
	if d.Type == "" {
		return fmt.Errorf("definition has no type")
	}
	if d.Defaults != nil && d.Defaults.Type != "" && d.Defaults.Type != d.Type {
		return fmt.Errorf("defaults root type %q does not match %q", d.Defaults.Type, d.Type)
	}
	for name, spec := range d.Props {
		if !spec.Kind.Valid() {
			return fmt.Errorf("prop %q has unknown kind %q", name, spec.Kind)
		}
	}
	if d.Slots != nil && d.Slots.Max > 0 && d.Slots.Min > d.Slots.Max {
		return fmt.Errorf("slot min %d exceeds max %d", d.Slots.Min, d.Slots.Max)
	}
	return nil
}

func (d *Definition) clone() *Definition {
	cp := *d
	if d.Props != nil {
		cp.Props = make(map[string]PropSpec, len(d.Props))
		for k, v := range d.Props {
			cp.Props[k] = v
		}
	}
	cp.StyleKeys = append([]string(nil), d.StyleKeys...)
	cp.BindingKeys = append([]string(nil), d.BindingKeys...)
	cp.ActionSlots = append([]string(nil), d.ActionSlots...)
	if d.Slots != nil {
		s := *d.Slots
		s.Allow = append([]string(nil), d.Slots.Allow...)
		cp.Slots = &s
	}
	cp.Defaults = d.Defaults.Clone()
	return &cp
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package action

import (
	"context"
	"fmt"
	"sort"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/node"
)

// HandlerFunc performs an action. It receives the literal payload from the
// node's action reference and the runtime context of the request.
type HandlerFunc func(ctx context.Context, payload map[string]any, rc binding.Context) error

// FieldSpec declares one payload field.
type FieldSpec struct {
	Kind        node.ValueKind `json:"kind,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Description string         `json:"description,omitempty"`
}

// PayloadSchema declares the payload an action accepts. Unless AllowExtra is
// set, fields not listed are rejected.
type PayloadSchema struct {
	Fields     map[string]FieldSpec `json:"fields,omitempty"`
	AllowExtra bool                 `json:"allowExtra,omitempty"`
}

// Validate checks payload against the schema and returns every violation.
func (s PayloadSchema) Validate(payload map[string]any) []sferrors.Violation {
	var out []sferrors.Violation

	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := s.Fields[name]
		v, ok := payload[name]
		if !ok || v == nil {
			if spec.Required {
				out = append(out, sferrors.Violation{Field: name, Message: "required field is missing"})
			}
			continue
		}
		if !spec.Kind.Accepts(v) {
			out = append(out, sferrors.Violation{Field: name, Message: fmt.Sprintf("expected %s, got %s", spec.Kind, node.KindOf(v))})
		}
	}

	if !s.AllowExtra {
		extra := make([]string, 0)
		for name := range payload {
			if _, declared := s.Fields[name]; !declared {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			out = append(out, sferrors.Violation{Field: name, Message: "unknown field"})
		}
	}
	return out
}

// Definition describes a registered action.
type Definition struct {
	ID      string        `json:"id"`
	Label   string        `json:"label"`
	Payload PayloadSchema `json:"payload"`
	Handler HandlerFunc   `json:"-"`
}

func (d *Definition) check() error {
	if d.ID == "" {
		return fmt.Errorf("action has no id")
	}
	if d.Handler == nil {
		return fmt.Errorf("action %q has no handler", d.ID)
	}
	for name, f := range d.Payload.Fields {
		if !f.Kind.Valid() {
			return fmt.Errorf("payload field %q has unknown kind %q", name, f.Kind)
		}
	}
	return nil
}

func (d *Definition) clone() *Definition {
	cp := *d
	if d.Payload.Fields != nil {
		cp.Payload.Fields = make(map[string]FieldSpec, len(d.Payload.Fields))
		for k, v := range d.Payload.Fields {
			cp.Payload.Fields[k] = v
		}
	}
	return &cp
}

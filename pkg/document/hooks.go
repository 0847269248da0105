package document

import (
	"context"
	"time"

	"github.com/vango-dev/storefront/pkg/node"
)

// EventType names a lifecycle change delivered to hooks.
type EventType string

const (
	EventPublished      EventType = "document.published"
	EventUnpublished    EventType = "document.unpublished"
	EventThemePublished EventType = "theme.published"
)

// Event describes a committed lifecycle change. Document is set for
// document events, Theme for theme events.
type Event struct {
	Type     EventType `json:"type"`
	StoreID  string    `json:"storeId"`
	Kind     Kind      `json:"kind,omitempty"`
	Key      string    `json:"key,omitempty"`
	Version  int64     `json:"version"`
	At       time.Time `json:"at"`
	Document *Document `json:"document,omitempty"`
	Theme    *Theme    `json:"theme,omitempty"`
}

// Hook observes committed lifecycle changes. Hooks run after the backend
// transaction commits; their errors are logged and never undo the change.
type Hook interface {
	OnEvent(ctx context.Context, ev Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, ev Event) error

// OnEvent calls f.
func (f HookFunc) OnEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Tree = d.Tree.Clone()
	cp.Meta = node.CopyMap(d.Meta)
	return &cp
}

// Clone returns a deep copy of t.
func (t *Theme) Clone() *Theme {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Variables = make(map[string]string, len(t.Variables))
	for k, v := range t.Variables {
		cp.Variables[k] = v
	}
	return &cp
}

func (ev Event) clone() Event {
	ev.Document = ev.Document.Clone()
	ev.Theme = ev.Theme.Clone()
	return ev
}

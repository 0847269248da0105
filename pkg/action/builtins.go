package action

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"sync"

	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/node"
)

// Built-in action ids.
const (
	IDNavigate  = "navigate"
	IDCartAdd   = "cart.add"
	IDSubscribe = "newsletter.subscribe"
)

// ErrNotConfigured is returned by a built-in whose collaborator is missing.
var ErrNotConfigured = errors.New("collaborator not configured")

// Navigator performs client navigation.
type Navigator interface {
	Navigate(ctx context.Context, to string) error
}

// CartItem is the line a cart.add dispatch asks to add.
type CartItem struct {
	StoreID   string
	UserID    string
	ProductID string
	VariantID string
	Quantity  int
}

// CartService owns cart state.
type CartService interface {
	AddToCart(ctx context.Context, item CartItem) error
}

// Subscriber records newsletter sign-ups.
type Subscriber interface {
	Subscribe(ctx context.Context, storeID, email string) error
}

// Collaborators are the services the built-in actions delegate to. A nil
// field makes the matching action fail with ErrNotConfigured, except
// Navigator: navigation is always recorded on the request's Navigation.
type Collaborators struct {
	Navigator  Navigator
	Cart       CartService
	Subscriber Subscriber
}

// RegisterBuiltins registers navigate, cart.add and newsletter.subscribe.
// Like the component registry's core set, it only runs once per registry
// and reports whether it registered anything.
func (r *Registry) RegisterBuiltins(c Collaborators) bool {
	return r.registerOnce(builtinDefinitions(c))
}

// registerOnce registers defs all together, unless a set was already
// registered. It panics on a malformed definition before touching the
// registry.
func (r *Registry) registerOnce(defs []Definition) bool {
	for i := range defs {
		if err := defs[i].check(); err != nil {
			panic(fmt.Sprintf("action: invalid built-in definition: %v", err))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builtinsLoaded {
		return false
	}
	for i := range defs {
		r.defs[defs[i].ID] = defs[i].clone()
	}
	r.builtinsLoaded = true
	return true
}

func builtinDefinitions(c Collaborators) []Definition {
	return []Definition{
		{
			ID:    IDNavigate,
			Label: "Navigate",
			Payload: PayloadSchema{Fields: map[string]FieldSpec{
				"to":      {Kind: node.KindString, Required: true, Description: "target path or URL"},
				"replace": {Kind: node.KindBoolean},
			}},
			Handler: navigate(c.Navigator),
		},
		{
			ID:    IDCartAdd,
			Label: "Add to cart",
			Payload: PayloadSchema{Fields: map[string]FieldSpec{
				"productId": {Kind: node.KindString, Required: true},
				"variantId": {Kind: node.KindString},
				"quantity":  {Kind: node.KindNumber, Description: "defaults to 1"},
			}},
			Handler: cartAdd(c.Cart),
		},
		{
			ID:    IDSubscribe,
			Label: "Subscribe to newsletter",
			Payload: PayloadSchema{Fields: map[string]FieldSpec{
				"email": {Kind: node.KindString, Required: true},
			}},
			Handler: subscribe(c.Subscriber),
		},
	}
}

func navigate(nav Navigator) HandlerFunc {
	return func(ctx context.Context, payload map[string]any, _ binding.Context) error {
		raw, _ := payload["to"].(string)
		to := strings.TrimSpace(raw)
		if to == "" {
			return fmt.Errorf("navigate: empty target")
		}
		if n := NavigationFrom(ctx); n != nil {
			n.set(to)
		}
		if nav != nil {
			return nav.Navigate(ctx, to)
		}
		return nil
	}
}

func cartAdd(cart CartService) HandlerFunc {
	return func(ctx context.Context, payload map[string]any, rc binding.Context) error {
		if cart == nil {
			return fmt.Errorf("cart.add: %w", ErrNotConfigured)
		}
		item := CartItem{
			ProductID: stringField(payload, "productId"),
			Quantity:  1,
		}
		if v, ok := payload["variantId"].(string); ok {
			item.VariantID = v
		}
		if q, ok := payload["quantity"]; ok && q != nil {
			n, ok := wholeNumber(q)
			if !ok || n < 1 {
				return fmt.Errorf("cart.add: quantity must be a positive whole number, got %v", q)
			}
			item.Quantity = n
		}
		item.StoreID = contextString(rc, binding.ScopeStore, "id")
		item.UserID = contextString(rc, binding.ScopeUser, "id")
		return cart.AddToCart(ctx, item)
	}
}

func subscribe(sub Subscriber) HandlerFunc {
	return func(ctx context.Context, payload map[string]any, rc binding.Context) error {
		if sub == nil {
			return fmt.Errorf("newsletter.subscribe: %w", ErrNotConfigured)
		}
		addr, err := mail.ParseAddress(stringField(payload, "email"))
		if err != nil {
			return fmt.Errorf("newsletter.subscribe: %w", err)
		}
		return sub.Subscribe(ctx, contextString(rc, binding.ScopeStore, "id"), addr.Address)
	}
}

func contextString(rc binding.Context, scope, key string) string {
	v, ok := binding.ResolvePath(scope+"."+key, rc)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func wholeNumber(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// Navigation collects the navigation target requested during a dispatch.
type Navigation struct {
	mu sync.Mutex
	to string
}

// Target returns the last requested target, if any.
func (n *Navigation) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.to
}

func (n *Navigation) set(to string) {
	n.mu.Lock()
	n.to = to
	n.mu.Unlock()
}

type navigationKey struct{}

// WithNavigation returns a context that records navigate targets.
func WithNavigation(ctx context.Context) (context.Context, *Navigation) {
	n := &Navigation{}
	return context.WithValue(ctx, navigationKey{}, n), n
}

// NavigationFrom returns the Navigation stored in ctx, or nil.
func NavigationFrom(ctx context.Context) *Navigation {
	n, _ := ctx.Value(navigationKey{}).(*Navigation)
	return n
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

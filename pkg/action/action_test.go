package action

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/node"
)

type observation struct {
	action string
	status string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []observation
}

func (r *fakeRecorder) ObserveDispatch(actionID, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{actionID, status})
}

func (r *fakeRecorder) last() observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return observation{}
	}
	return r.seen[len(r.seen)-1]
}

type fakeCart struct {
	items []CartItem
	err   error
}

func (c *fakeCart) AddToCart(_ context.Context, item CartItem) error {
	if c.err != nil {
		return c.err
	}
	c.items = append(c.items, item)
	return nil
}

type fakeSubscriber struct {
	storeID, email string
}

func (s *fakeSubscriber) Subscribe(_ context.Context, storeID, email string) error {
	s.storeID, s.email = storeID, email
	return nil
}

type fakeNavigator struct{ to []string }

func (n *fakeNavigator) Navigate(_ context.Context, to string) error {
	n.to = append(n.to, to)
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, map[string]any, binding.Context) error { return nil }

	for _, id := range []string{"b", "a"} {
		if err := r.Register(Definition{ID: id, Handler: noop}); err != nil {
			t.Fatal(err)
		}
	}
	if !r.Has("a") || r.Has("c") {
		t.Error("Has() mismatch")
	}
	list := r.List()
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Errorf("List() = %v", list)
	}

	if err := r.Register(Definition{ID: "x"}); !stderrors.Is(err, sferrors.ErrInvalidActionDefinition) {
		t.Errorf("missing handler: err = %v", err)
	}
	if err := r.Register(Definition{Handler: noop}); !stderrors.Is(err, sferrors.ErrInvalidActionDefinition) {
		t.Errorf("missing id: err = %v", err)
	}
}

func TestRegisterBuiltinsGuard(t *testing.T) {
	r := NewRegistry()
	if !r.RegisterBuiltins(Collaborators{}) {
		t.Fatal("first RegisterBuiltins should register")
	}
	if r.RegisterBuiltins(Collaborators{}) {
		t.Error("second RegisterBuiltins should be a no-op")
	}
	for _, id := range []string{IDNavigate, IDCartAdd, IDSubscribe} {
		if !r.Has(id) {
			t.Errorf("%s not registered", id)
		}
	}
}

func TestRegisterCopiesDefinition(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, map[string]any, binding.Context) error { return nil }
	fields := map[string]FieldSpec{"to": {Kind: node.KindString, Required: true}}
	if err := r.Register(Definition{ID: "go", Payload: PayloadSchema{Fields: fields}, Handler: noop}); err != nil {
		t.Fatal(err)
	}
	delete(fields, "to")
	fields["x"] = FieldSpec{Required: true}

	got, _ := r.Get("go")
	if _, ok := got.Payload.Fields["to"]; !ok || len(got.Payload.Fields) != 1 {
		t.Fatalf("registered payload aliases the caller's map: %v", got.Payload.Fields)
	}

	d := NewDispatcher(r)
	if err := d.Dispatch(context.Background(), node.ActionRef{ActionID: "go", Payload: map[string]any{"to": "/"}}, nil); err != nil {
		t.Errorf("Dispatch = %v", err)
	}
}

func TestRegisterOnceRejectsMalformedSet(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, map[string]any, binding.Context) error { return nil }
	defs := []Definition{
		{ID: "ok", Handler: noop},
		{ID: "broken"},
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("malformed definition did not panic")
			}
		}()
		r.registerOnce(defs)
	}()
	if r.Len() != 0 {
		t.Errorf("registry holds %d definitions after a failed set", r.Len())
	}

	if !r.RegisterBuiltins(Collaborators{}) {
		t.Error("built-ins refused after a failed set")
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(NewRegistry(), WithRecorder(rec))

	err := d.Dispatch(context.Background(), node.ActionRef{ActionID: "wishlist.add"}, nil)
	if !stderrors.Is(err, sferrors.ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
	if got := rec.last(); got.status != StatusUnknownAction || got.action != "wishlist.add" {
		t.Errorf("recorded %+v", got)
	}
}

func TestDispatchInvokesOnceWithPayloadAndContext(t *testing.T) {
	r := NewRegistry()
	calls := 0
	var gotPayload map[string]any
	var gotCtx binding.Context
	_ = r.Register(Definition{
		ID:      "track",
		Payload: PayloadSchema{AllowExtra: true},
		Handler: func(_ context.Context, payload map[string]any, rc binding.Context) error {
			calls++
			gotPayload = payload
			gotCtx = rc
			return nil
		},
	})

	rc := binding.Context{"user": map[string]any{"id": "u1"}}
	ref := node.ActionRef{ActionID: "track", Payload: map[string]any{"event": "click"}}
	if err := NewDispatcher(r).Dispatch(context.Background(), ref, rc); err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if gotPayload["event"] != "click" {
		t.Errorf("payload = %v", gotPayload)
	}
	if _, ok := binding.ResolvePath("user.id", gotCtx); !ok {
		t.Error("runtime context not passed through")
	}

	gotPayload["event"] = "changed"
	if ref.Payload["event"] != "click" {
		t.Error("handler payload aliases the node's action reference")
	}
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	errOutOfStock := stderrors.New("out of stock")
	cart := &fakeCart{err: errOutOfStock}
	r := NewRegistry()
	r.RegisterBuiltins(Collaborators{Cart: cart})
	rec := &fakeRecorder{}

	err := NewDispatcher(r, WithRecorder(rec)).Dispatch(context.Background(),
		node.ActionRef{ActionID: IDCartAdd, Payload: map[string]any{"productId": "p1"}}, nil)

	if !stderrors.Is(err, errOutOfStock) {
		t.Fatalf("err = %v, want wrapped errOutOfStock", err)
	}
	if got := rec.last(); got.status != StatusError {
		t.Errorf("status = %q, want %q", got.status, StatusError)
	}
}

func TestDispatchInvalidPayload(t *testing.T) {
	cart := &fakeCart{}
	r := NewRegistry()
	r.RegisterBuiltins(Collaborators{Cart: cart})
	d := NewDispatcher(r)

	tests := []struct {
		name    string
		payload map[string]any
		fields  []string
	}{
		{name: "missing required", payload: nil, fields: []string{"productId"}},
		{name: "wrong kind", payload: map[string]any{"productId": 12}, fields: []string{"productId"}},
		{name: "unknown field", payload: map[string]any{"productId": "p1", "coupon": "X"}, fields: []string{"coupon"}},
		{name: "several", payload: map[string]any{"quantity": "two", "extra": true}, fields: []string{"productId", "quantity", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Dispatch(context.Background(), node.ActionRef{ActionID: IDCartAdd, Payload: tt.payload}, nil)
			if !stderrors.Is(err, sferrors.ErrInvalidActionPayload) {
				t.Fatalf("err = %v, want ErrInvalidActionPayload", err)
			}
			se, _ := sferrors.As(err)
			if len(se.Violations) != len(tt.fields) {
				t.Fatalf("violations = %v", se.Violations)
			}
			for i, f := range tt.fields {
				if se.Violations[i].Field != f {
					t.Errorf("violation[%d].Field = %q, want %q", i, se.Violations[i].Field, f)
				}
			}
		})
	}
	if len(cart.items) != 0 {
		t.Error("handler must not run for an invalid payload")
	}
}

func TestCartAdd(t *testing.T) {
	cart := &fakeCart{}
	r := NewRegistry()
	r.RegisterBuiltins(Collaborators{Cart: cart})
	d := NewDispatcher(r)

	rc := binding.Context{
		"store": map[string]any{"id": "s1"},
		"user":  map[string]any{"id": "u1"},
	}
	err := d.Dispatch(context.Background(), node.ActionRef{
		ActionID: IDCartAdd,
		Payload:  map[string]any{"productId": "p1", "variantId": "v2", "quantity": float64(3)},
	}, rc)
	if err != nil {
		t.Fatal(err)
	}

	want := CartItem{StoreID: "s1", UserID: "u1", ProductID: "p1", VariantID: "v2", Quantity: 3}
	if len(cart.items) != 1 || cart.items[0] != want {
		t.Errorf("items = %+v, want %+v", cart.items, want)
	}

	err = d.Dispatch(context.Background(), node.ActionRef{
		ActionID: IDCartAdd,
		Payload:  map[string]any{"productId": "p1", "quantity": 1.5},
	}, rc)
	if err == nil {
		t.Error("fractional quantity should fail")
	}

	_ = d.Dispatch(context.Background(), node.ActionRef{ActionID: IDCartAdd, Payload: map[string]any{"productId": "p9"}}, nil)
	if got := cart.items[len(cart.items)-1]; got.Quantity != 1 || got.ProductID != "p9" {
		t.Errorf("default quantity item = %+v", got)
	}
}

func TestNavigate(t *testing.T) {
	nav := &fakeNavigator{}
	r := NewRegistry()
	r.RegisterBuiltins(Collaborators{Navigator: nav})
	d := NewDispatcher(r)

	ctx, sink := WithNavigation(context.Background())
	err := d.Dispatch(ctx, node.ActionRef{ActionID: IDNavigate, Payload: map[string]any{"to": "/checkout"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sink.Target() != "/checkout" {
		t.Errorf("Target() = %q", sink.Target())
	}
	if len(nav.to) != 1 || nav.to[0] != "/checkout" {
		t.Errorf("navigator saw %v", nav.to)
	}

	if err := d.Dispatch(ctx, node.ActionRef{ActionID: IDNavigate, Payload: map[string]any{"to": "  "}}, nil); err == nil {
		t.Error("blank target should fail")
	}
}

func TestSubscribe(t *testing.T) {
	sub := &fakeSubscriber{}
	r := NewRegistry()
	r.RegisterBuiltins(Collaborators{Subscriber: sub})
	d := NewDispatcher(r)
	rc := binding.Context{"store": map[string]any{"id": "s1"}}

	err := d.Dispatch(context.Background(), node.ActionRef{
		ActionID: IDSubscribe,
		Payload:  map[string]any{"email": "Ada <ada@example.com>"},
	}, rc)
	if err != nil {
		t.Fatal(err)
	}
	if sub.email != "ada@example.com" || sub.storeID != "s1" {
		t.Errorf("subscriber got %q/%q", sub.storeID, sub.email)
	}

	err = d.Dispatch(context.Background(), node.ActionRef{ActionID: IDSubscribe, Payload: map[string]any{"email": "nope"}}, rc)
	if err == nil {
		t.Error("malformed address should fail")
	}
}

func TestBuiltinWithoutCollaborator(t *testing.T) {
	r := NewRegistry()
	r.RegisterBuiltins(Collaborators{})
	err := NewDispatcher(r).Dispatch(context.Background(),
		node.ActionRef{ActionID: IDSubscribe, Payload: map[string]any{"email": "a@b.co"}}, nil)
	if !stderrors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

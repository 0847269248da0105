package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/storefront/internal/storage"
	"github.com/vango-dev/storefront/pkg/action"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/component"
	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/middleware"
	"github.com/vango-dev/storefront/pkg/node"
	"github.com/vango-dev/storefront/pkg/render"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type cart struct {
	mu    sync.Mutex
	items []action.CartItem
}

func (c *cart) AddToCart(_ context.Context, item action.CartItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	return nil
}

type testEnv struct {
	srv   *Server
	store *document.Store
	carts *cart
	reg   *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	components := component.NewRegistry()
	components.RegisterCore()
	actions := action.NewRegistry()
	carts := &cart{}
	actions.RegisterBuiltins(action.Collaborators{Cart: carts})

	store := document.NewStore(storage.NewMemoryBackend(),
		document.WithLogger(quiet),
		document.WithValidators(document.DefaultValidators(components, actions)),
	)
	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
	provider := binding.StaticProvider{Data: binding.Context{
		"product": map[string]any{"id": "p-1", "title": "Trail shoe"},
	}}
	srv := New(store, components, actions,
		WithLogger(quiet),
		WithMetrics(metrics, reg),
		WithProvider(provider),
		WithTracing(),
	)
	return &testEnv{srv: srv, store: store, carts: carts, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path, storeID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if storeID != "" {
		req.Header.Set(HeaderStoreID, storeID)
		req.Header.Set(HeaderUserID, "u1")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Code != code {
		t.Fatalf("code = %q, want %q", resp.Code, code)
	}
	return resp
}

func (e *testEnv) instance(t *testing.T, typ string) *node.Node {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/components/"+typ+"/instances", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %s: %d %s", typ, rec.Code, rec.Body.String())
	}
	return decode[*node.Node](t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "storefront_http_requests_total") {
		t.Fatalf("metrics = %d %s", rec.Code, rec.Body.String())
	}
}

func TestTenantRequired(t *testing.T) {
	e := newTestEnv(t)
	expectError(t, e.do(t, http.MethodGet, "/v1/documents/PAGE", "", nil), http.StatusBadRequest, "E801")

	// Registry listings are not tenant scoped.
	if rec := e.do(t, http.MethodGet, "/v1/components", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("components = %d", rec.Code)
	}
}

func TestRegistries(t *testing.T) {
	e := newTestEnv(t)

	defs := decode[[]component.Definition](t, e.do(t, http.MethodGet, "/v1/components", "", nil))
	if len(defs) == 0 {
		t.Fatal("no component definitions")
	}

	heading := e.instance(t, component.TypeHeading)
	if heading.ID == "" || heading.Props["text"] != "Welcome to our store" {
		t.Errorf("heading = %+v", heading)
	}
	expectError(t, e.do(t, http.MethodPost, "/v1/components/Carousel/instances", "", nil), http.StatusNotFound, "E201")

	acts := decode[[]action.Definition](t, e.do(t, http.MethodGet, "/v1/actions", "", nil))
	found := false
	for _, a := range acts {
		found = found || a.ID == action.IDNavigate
	}
	if !found {
		t.Errorf("actions = %+v", acts)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	e := newTestEnv(t)

	root := e.instance(t, component.TypeContainer)
	heading := e.instance(t, component.TypeHeading)
	root = node.Insert(root, root.ID, heading)

	base := "/v1/documents/page/home"
	rec := e.do(t, http.MethodPut, base+"/draft", "s1", DraftRequest{Tree: root, Meta: map[string]any{"title": "Home"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("save draft = %d %s", rec.Code, rec.Body.String())
	}
	draft := decode[document.Document](t, rec)
	if draft.Kind != document.KindPage || draft.Status != document.StatusDraft || draft.Version != 1 {
		t.Errorf("draft = %+v", draft)
	}

	expectError(t, e.do(t, http.MethodGet, base+"/published", "s1", nil), http.StatusNotFound, "E403")

	rec = e.do(t, http.MethodPost, base+"/publish", "s1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish = %d %s", rec.Code, rec.Body.String())
	}

	pub := decode[document.Document](t, e.do(t, http.MethodGet, base+"/published", "s1", nil))
	if pub.Tree == nil || len(pub.Tree.Children) != 1 || pub.Tree.Children[0].ID != heading.ID {
		t.Fatalf("published tree = %+v", pub.Tree)
	}
	if pub.Meta["title"] != "Home" {
		t.Errorf("meta = %v", pub.Meta)
	}

	// Another tenant sees nothing.
	expectError(t, e.do(t, http.MethodGet, base+"/published", "s2", nil), http.StatusNotFound, "E403")

	diff := decode[DiffResponse](t, e.do(t, http.MethodGet, base+"/diff", "s1", nil))
	if len(diff.Changes) != 0 {
		t.Errorf("diff after publish = %+v", diff.Changes)
	}

	root = node.Update(root, heading.ID, func(n *node.Node) *node.Node {
		n.Props["text"] = "Summer sale"
		return n
	})
	e.do(t, http.MethodPut, base+"/draft", "s1", DraftRequest{Tree: root})
	diff = decode[DiffResponse](t, e.do(t, http.MethodGet, base+"/diff", "s1", nil))
	if len(diff.Changes) != 1 || diff.Changes[0].NodeID != heading.ID || diff.Changes[0].Op != node.ChangeUpdated {
		t.Errorf("diff = %+v", diff.Changes)
	}

	pub = decode[document.Document](t, e.do(t, http.MethodGet, base+"/published", "s1", nil))
	if pub.Tree.Children[0].Props["text"] == "Summer sale" {
		t.Error("draft edit leaked into published")
	}

	list := decode[[]document.Document](t, e.do(t, http.MethodGet, "/v1/documents/PAGE?status=published", "s1", nil))
	if len(list) != 1 || list[0].Key != "home" {
		t.Errorf("list = %+v", list)
	}
	expectError(t, e.do(t, http.MethodGet, "/v1/documents/PAGE?status=archived", "s1", nil), http.StatusBadRequest, "E802")

	if rec := e.do(t, http.MethodDelete, base+"/published", "s1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("unpublish = %d", rec.Code)
	}
	expectError(t, e.do(t, http.MethodDelete, base+"/published", "s1", nil), http.StatusNotFound, "E403")
	if rec := e.do(t, http.MethodDelete, base+"/draft", "s1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete draft = %d", rec.Code)
	}
}

func TestDocumentErrors(t *testing.T) {
	e := newTestEnv(t)

	expectError(t, e.do(t, http.MethodPost, "/v1/documents/PAGE/home/publish", "s1", nil), http.StatusConflict, "E402")

	// A page root must be a layout component.
	text := e.instance(t, component.TypeText)
	resp := expectError(t, e.do(t, http.MethodPut, "/v1/documents/PAGE/home/draft", "s1", DraftRequest{Tree: text}),
		http.StatusBadRequest, "E401")
	if len(resp.Violations) == 0 {
		t.Error("invalid document response has no violations")
	}

	expectError(t, e.do(t, http.MethodPut, "/v1/documents/PAGE/home/draft", "s1", DraftRequest{}), http.StatusBadRequest, "E401")
	expectError(t, e.do(t, http.MethodPut, "/v1/documents/PAGE/home/draft", "s1", "{not json"), http.StatusBadRequest, "E802")
	expectError(t, e.do(t, http.MethodGet, "/v1/documents/BLOG/home/draft", "s1", nil), http.StatusBadRequest, "E404")
}

func TestDispatchAction(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/actions/dispatch", "s1", DispatchRequest{
		Ref: node.ActionRef{ActionID: action.IDNavigate, Payload: map[string]any{"to": "/sale"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatch = %d %s", rec.Code, rec.Body.String())
	}
	if res := decode[render.DispatchResult](t, rec); res.Navigate != "/sale" {
		t.Errorf("result = %+v", res)
	}

	rec = e.do(t, http.MethodPost, "/v1/actions/dispatch", "s1", DispatchRequest{
		Ref: node.ActionRef{ActionID: action.IDCartAdd, Payload: map[string]any{"productId": "p-9", "quantity": 2}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("cart.add = %d %s", rec.Code, rec.Body.String())
	}
	want := action.CartItem{StoreID: "s1", UserID: "u1", ProductID: "p-9", Quantity: 2}
	if len(e.carts.items) != 1 || e.carts.items[0] != want {
		t.Errorf("cart = %+v, want %+v", e.carts.items, want)
	}

	expectError(t, e.do(t, http.MethodPost, "/v1/actions/dispatch", "s1", DispatchRequest{
		Ref: node.ActionRef{ActionID: "wishlist.add"},
	}), http.StatusNotFound, "E301")
	expectError(t, e.do(t, http.MethodPost, "/v1/actions/dispatch", "s1", DispatchRequest{
		Ref: node.ActionRef{ActionID: action.IDCartAdd, Payload: map[string]any{}},
	}), http.StatusBadRequest, "E302")
}

func TestRender(t *testing.T) {
	e := newTestEnv(t)

	root := e.instance(t, component.TypeContainer)
	card := e.instance(t, component.TypeProductCard)
	summary := e.instance(t, component.TypeCartSummary)
	root = node.Insert(root, root.ID, card)
	root = node.Insert(root, root.ID, summary)
	e.do(t, http.MethodPut, "/v1/documents/PAGE/product/draft", "s1", DraftRequest{Tree: root})
	e.do(t, http.MethodPost, "/v1/documents/PAGE/product/publish", "s1", nil)

	rec := e.do(t, http.MethodPost, "/v1/render/PAGE/product", "s1", RenderRequest{
		Context: binding.Context{"product": map[string]any{"id": "p-2", "title": "Rain jacket"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("render = %d %s", rec.Code, rec.Body.String())
	}
	page := decode[render.Page](t, rec)
	got := page.Root.Children[0]
	if got.Props["title"] != "Rain jacket" || got.Props["productId"] != "p-2" {
		t.Errorf("card props = %v", got.Props)
	}

	expectError(t, e.do(t, http.MethodPost, "/v1/render/PAGE/missing", "s1", nil), http.StatusNotFound, "E403")

	rec = e.do(t, http.MethodPost, "/v1/render/PAGE/product/dispatch", "s1", RenderDispatchRequest{
		NodeID: summary.ID, Slot: "onCheckout",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("render dispatch = %d %s", rec.Code, rec.Body.String())
	}
	if res := decode[render.DispatchResult](t, rec); res.Navigate != "/checkout" {
		t.Errorf("result = %+v", res)
	}
	expectError(t, e.do(t, http.MethodPost, "/v1/render/PAGE/product/dispatch", "s1", RenderDispatchRequest{}),
		http.StatusBadRequest, "E802")
}

func TestTheme(t *testing.T) {
	e := newTestEnv(t)

	expectError(t, e.do(t, http.MethodGet, "/v1/theme/published", "s1", nil), http.StatusNotFound, "E403")
	expectError(t, e.do(t, http.MethodPost, "/v1/theme/publish", "s1", nil), http.StatusConflict, "E402")
	expectError(t, e.do(t, http.MethodPut, "/v1/theme/draft", "s1", ThemeRequest{Variables: map[string]string{" ": "x"}}),
		http.StatusBadRequest, "E405")

	rec := e.do(t, http.MethodPut, "/v1/theme/draft", "s1", ThemeRequest{Variables: map[string]string{"color.primary": "#0a0"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("save theme = %d %s", rec.Code, rec.Body.String())
	}
	if rec := e.do(t, http.MethodPost, "/v1/theme/publish", "s1", nil); rec.Code != http.StatusOK {
		t.Fatalf("publish theme = %d %s", rec.Code, rec.Body.String())
	}
	theme := decode[document.Theme](t, e.do(t, http.MethodGet, "/v1/theme/published", "s1", nil))
	if theme.Variables["color.primary"] != "#0a0" {
		t.Errorf("theme = %+v", theme)
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(io.ErrUnexpectedEOF); got != http.StatusInternalServerError {
		t.Errorf("plain error = %d", got)
	}
}

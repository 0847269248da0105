package api

import (
	"context"
	"net/http"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

// Header names read by HeaderResolver.
const (
	HeaderStoreID = "X-Store-ID"
	HeaderUserID  = "X-User-ID"
)

// Tenant identifies the store a request operates on and, optionally, the
// shopper or editor making it.
type Tenant struct {
	StoreID string
	UserID  string
}

// TenantResolver extracts the tenant from a request. Authentication lives
// in the resolver; the API trusts what it returns.
type TenantResolver interface {
	Resolve(r *http.Request) (Tenant, error)
}

// TenantResolverFunc adapts a function to TenantResolver.
type TenantResolverFunc func(r *http.Request) (Tenant, error)

// Resolve calls f.
func (f TenantResolverFunc) Resolve(r *http.Request) (Tenant, error) {
	return f(r)
}

// HeaderResolver reads the tenant from X-Store-ID and X-User-ID. Browsers
// cannot set headers on websocket upgrades, so the storeId and userId
// query parameters are accepted as a fallback.
type HeaderResolver struct{}

// Resolve returns ErrMissingTenant when no store id is present.
func (HeaderResolver) Resolve(r *http.Request) (Tenant, error) {
	t := Tenant{
		StoreID: r.Header.Get(HeaderStoreID),
		UserID:  r.Header.Get(HeaderUserID),
	}
	q := r.URL.Query()
	if t.StoreID == "" {
		t.StoreID = q.Get("storeId")
	}
	if t.UserID == "" {
		t.UserID = q.Get("userId")
	}
	if t.StoreID == "" {
		return Tenant{}, sferrors.New("E801").
			WithDetailf("set the %s header", HeaderStoreID)
	}
	return t, nil
}

type tenantKey struct{}

// WithTenant returns a copy of ctx carrying t.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// TenantFrom returns the tenant stored by the API's tenant middleware.
func TenantFrom(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(Tenant)
	return t, ok
}

func (s *Server) requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := s.tenants.Resolve(r)
		if err != nil {
			s.writeError(w, r, sferrors.FromError(err, "E801"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
	})
}

func tenantOf(r *http.Request) Tenant {
	t, _ := TenantFrom(r.Context())
	return t
}

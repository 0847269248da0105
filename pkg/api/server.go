package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/storefront/pkg/action"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/component"
	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/middleware"
	"github.com/vango-dev/storefront/pkg/render"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 4 << 20

// Server exposes the document store, registries and renderer over HTTP.
type Server struct {
	store      *document.Store
	components *component.Registry
	actions    *action.Registry
	dispatcher *action.Dispatcher
	provider   binding.Provider
	renderer   *render.Renderer
	tenants    TenantResolver
	hub        *Hub

	metrics  *middleware.Metrics
	gatherer prometheus.Gatherer
	tracing  []middleware.OTelOption
	traced   bool

	origins []string
	maxBody int64
	logger  *slog.Logger
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTenantResolver replaces the header-based resolver.
func WithTenantResolver(t TenantResolver) Option {
	return func(s *Server) {
		if t != nil {
			s.tenants = t
		}
	}
}

// WithDispatcher sets the action dispatcher. Without one the server builds
// a dispatcher over the action registry.
func WithDispatcher(d *action.Dispatcher) Option {
	return func(s *Server) {
		s.dispatcher = d
	}
}

// WithProvider sets the runtime context provider used by render routes.
func WithProvider(p binding.Provider) Option {
	return func(s *Server) {
		s.provider = p
	}
}

// WithMetrics instruments routes with m and serves g on /metrics.
// A nil gatherer serves the default registry.
func WithMetrics(m *middleware.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithTracing enables the OpenTelemetry middleware.
func WithTracing(opts ...middleware.OTelOption) Option {
	return func(s *Server) {
		s.traced = true
		s.tracing = opts
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// Empty allows same-host requests only.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New creates a server and registers its live feed as a store hook.
func New(store *document.Store, components *component.Registry, actions *action.Registry, opts ...Option) *Server {
	s := &Server{
		store:      store,
		components: components,
		actions:    actions,
		tenants:    HeaderResolver{},
		maxBody:    DefaultMaxBodyBytes,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dispatcher == nil {
		s.dispatcher = action.NewDispatcher(actions, action.WithLogger(s.logger))
	}
	s.renderer = render.NewRenderer(store, s.provider,
		render.WithLogger(s.logger),
		render.WithDispatcher(s.dispatcher),
	)
	s.hub = NewHub(HubConfig{AllowedOrigins: s.origins, Metrics: s.metrics, Logger: s.logger})
	store.AddHook(s.hub)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the live feed.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Handler)
	}
	if s.traced {
		opts := append([]middleware.OTelOption{
			middleware.WithTenant(func(r *http.Request) (string, string) {
				t, err := s.tenants.Resolve(r)
				if err != nil {
					return "", ""
				}
				return t.StoreID, t.UserID
			}),
			middleware.WithRequestFilter(func(r *http.Request) bool {
				return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
			}),
		}, s.tracing...)
		r.Use(middleware.OpenTelemetry(opts...))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/components", s.listComponents)
		r.Post("/components/{type}/instances", s.createInstance)
		r.Get("/actions", s.listActions)

		r.Group(func(r chi.Router) {
			r.Use(s.requireTenant)

			r.Post("/actions/dispatch", s.dispatchAction)

			r.Get("/documents/{kind}", s.listDocuments)
			r.Route("/documents/{kind}/{key}", func(r chi.Router) {
				r.Get("/draft", s.getDraft)
				r.Put("/draft", s.saveDraft)
				r.Delete("/draft", s.deleteDraft)
				r.Post("/publish", s.publish)
				r.Get("/published", s.getPublished)
				r.Delete("/published", s.unpublish)
				r.Get("/diff", s.diff)
			})

			r.Post("/render/{kind}/{key}", s.render)
			r.Post("/render/{kind}/{key}/dispatch", s.renderDispatch)

			r.Get("/theme/draft", s.getThemeDraft)
			r.Put("/theme/draft", s.saveThemeDraft)
			r.Post("/theme/publish", s.publishTheme)
			r.Get("/theme/published", s.getThemePublished)

			r.Get("/live", s.hub.ServeHTTP)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// Package middleware provides Prometheus metrics and OpenTelemetry tracing
// for the storefront HTTP API and the components behind it.
//
// # Prometheus Metrics
//
// Metrics is both HTTP middleware and the recorder handed to the action
// dispatcher and the document store:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("storefront"))
//	d := action.NewDispatcher(actions, action.WithRecorder(m))
//	s := document.NewStore(backend, document.WithRecorder(m))
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.Handler())
//
// Requests are labelled with the chi route pattern ("/v1/documents/{kind}")
// rather than the raw path.
//
// # OpenTelemetry Middleware
//
// OpenTelemetry opens a server span per request and stores it on the
// request context. Document store and dispatch spans started from that
// context nest under it.
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("storefront"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
package middleware

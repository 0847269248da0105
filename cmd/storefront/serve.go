package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/pkg/api"
	"github.com/vango-dev/storefront/pkg/middleware"
)

func serveCmd(configDir *string) *cobra.Command {
	var (
		addr    string
		storage string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		Long: `Serve the document, theme, registry, render and dispatch endpoints
under /v1, the live lifecycle feed at /v1/live, health at /healthz and
Prometheus metrics at /metrics when enabled.

Examples:
  storefront serve
  storefront serve --addr :9090
  storefront serve --storage sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if storage != "" {
				cfg.Storage.Driver = storage
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, os.Stderr, true)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := []api.Option{
				api.WithLogger(a.logger),
				api.WithDispatcher(a.dispatcher),
				api.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
			}
			if a.metrics != nil {
				opts = append(opts, api.WithMetrics(a.metrics, a.gatherer))
			}
			if cfg.Tracing.Enabled {
				opts = append(opts, api.WithTracing(middleware.WithTracerName(cfg.Tracing.TracerName)))
			}
			srv := api.New(a.store, a.components, a.actions, opts...)

			httpServer := &http.Server{
				Addr:         cfg.Server.Addr,
				Handler:      srv.Handler(),
				ReadTimeout:  cfg.ReadTimeout(),
				WriteTimeout: cfg.WriteTimeout(),
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer cancel()
			srv.Hub().Close()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&storage, "storage", "", "Storage driver: memory, sqlite or nats")

	return cmd
}

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/storefront/internal/config"
	"github.com/vango-dev/storefront/internal/events"
	"github.com/vango-dev/storefront/internal/export"
	"github.com/vango-dev/storefront/internal/storage"
	"github.com/vango-dev/storefront/pkg/action"
	"github.com/vango-dev/storefront/pkg/component"
	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/middleware"
)

// app holds the wired engine for one command invocation.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	components *component.Registry
	actions    *action.Registry
	dispatcher *action.Dispatcher
	store      *document.Store
	metrics    *middleware.Metrics
	gatherer   prometheus.Gatherer

	closers []io.Closer
}

// loadConfig reads storefront.json from dir, or from the nearest parent of
// the working directory when dir is empty.
func loadConfig(dir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if dir != "" {
		cfg, err = config.Load(dir)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newComponents builds the component registry: the core set plus any
// definitions found in the configured directory.
func newComponents(cfg *config.Config, logger *slog.Logger) (*component.Registry, error) {
	reg := component.NewRegistry(component.WithLogger(logger))
	reg.RegisterCore()
	if dir := cfg.ComponentsPath(); dir != "" {
		n, err := reg.LoadYAML(os.DirFS(dir), ".")
		if err != nil {
			return nil, err
		}
		logger.Info("loaded component definitions", "dir", dir, "count", n)
	}
	return reg, nil
}

// buildApp wires storage, registries, hooks and telemetry from cfg.
// withMetrics registers collectors on the default Prometheus registry.
func buildApp(ctx context.Context, cfg *config.Config, logw io.Writer, withMetrics bool) (*app, error) {
	a := &app{cfg: cfg, logger: newLogger(cfg, logw)}

	components, err := newComponents(cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.components = components

	a.actions = action.NewRegistry()
	a.actions.RegisterBuiltins(action.Collaborators{})

	dispatchOpts := []action.DispatcherOption{action.WithLogger(a.logger)}
	storeOpts := []document.Option{
		document.WithValidators(document.DefaultValidators(a.components, a.actions)),
		document.WithLogger(a.logger),
	}
	if withMetrics && cfg.Metrics.Enabled {
		a.metrics = middleware.NewMetrics(middleware.WithNamespace(cfg.Metrics.Namespace))
		a.gatherer = prometheus.DefaultGatherer
		dispatchOpts = append(dispatchOpts, action.WithRecorder(a.metrics))
		storeOpts = append(storeOpts, document.WithRecorder(a.metrics))
	}
	if cfg.Tracing.Enabled {
		dispatchOpts = append(dispatchOpts, action.WithTracerName(cfg.Tracing.TracerName))
		storeOpts = append(storeOpts, document.WithTracerName(cfg.Tracing.TracerName))
	}
	a.dispatcher = action.NewDispatcher(a.actions, dispatchOpts...)

	backend, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, backend)
	a.store = document.NewStore(backend, storeOpts...)

	if cfg.Export.Bucket != "" {
		client := export.NewS3Client(export.ClientConfig{
			Region:       cfg.Export.Region,
			Endpoint:     cfg.Export.Endpoint,
			UsePathStyle: cfg.Export.UsePathStyle,
		})
		a.store.AddHook(export.NewS3Exporter(client, cfg.Export.Bucket, cfg.Export.Prefix, export.WithLogger(a.logger)))
		a.logger.Info("exporting published documents", "bucket", cfg.Export.Bucket, "prefix", cfg.Export.Prefix)
	}

	if cfg.Events.NATSURL != "" {
		notifier, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, events.WithLogger(a.logger))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, notifier)
		a.store.AddHook(notifier)
		a.logger.Info("publishing lifecycle events", "url", cfg.Events.NATSURL, "prefix", cfg.Events.SubjectPrefix)
	}

	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package action

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/node"
)

const defaultTracerName = "storefront/action"

// Dispatch outcomes reported to the Recorder.
const (
	StatusOK             = "ok"
	StatusUnknownAction  = "unknown_action"
	StatusInvalidPayload = "invalid_payload"
	StatusError          = "error"
)

// Recorder receives one observation per dispatch.
type Recorder interface {
	ObserveDispatch(actionID, status string, d time.Duration)
}

// Dispatcher resolves action references against a registry and runs their
// handlers.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithTracerName sets the OpenTelemetry tracer name.
func WithTracerName(name string) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = otel.Tracer(name)
	}
}

// NewDispatcher creates a dispatcher over reg.
func NewDispatcher(reg *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		logger:   slog.Default(),
		tracer:   otel.Tracer(defaultTracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs the action named by ref exactly once and waits for it.
//
// It fails with ErrUnknownAction when the id is not registered and with
// ErrInvalidActionPayload when the payload does not match the action's
// schema; in both cases the handler is not called. A handler error is
// returned wrapped with the action id, so errors.Is still sees it.
func (d *Dispatcher) Dispatch(ctx context.Context, ref node.ActionRef, rc binding.Context) (err error) {
	start := time.Now()
	status := StatusOK

	ctx, span := d.tracer.Start(ctx, "action.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("storefront.action_id", ref.ActionID)),
	)
	defer func() {
		elapsed := time.Since(start)
		if d.recorder != nil {
			d.recorder.ObserveDispatch(ref.ActionID, status, elapsed)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.SetAttributes(attribute.String("storefront.dispatch_status", status))
		span.End()
		d.logger.Debug("action dispatched",
			"action", ref.ActionID,
			"status", status,
			"duration", elapsed,
		)
	}()

	def, ok := d.registry.Get(ref.ActionID)
	if !ok {
		status = StatusUnknownAction
		return sferrors.New("E301").WithDetailf("action %q is not registered", ref.ActionID)
	}

	if vs := def.Payload.Validate(ref.Payload); len(vs) > 0 {
		status = StatusInvalidPayload
		return sferrors.New("E302").
			WithDetailf("payload for %q does not match its schema", ref.ActionID).
			WithViolations(vs)
	}

	payload := node.CopyMap(ref.Payload)
	if payload == nil {
		payload = map[string]any{}
	}
	if herr := def.Handler(ctx, payload, rc); herr != nil {
		status = StatusError
		return fmt.Errorf("action %s: %w", ref.ActionID, herr)
	}
	return nil
}

package document

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/internal/storage"
	"github.com/vango-dev/storefront/pkg/node"
)

const defaultTracerName = "storefront/document"

// Operation outcomes reported to the Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Recorder receives one observation per store operation.
type Recorder interface {
	ObserveStoreOp(op, outcome string, d time.Duration)
}

// Store keeps the DRAFT and PUBLISHED slots of every document and theme.
type Store struct {
	backend    storage.Backend
	validators map[Kind]Validator
	hooks      []Hook
	logger     *slog.Logger
	recorder   Recorder
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithValidators sets the per-kind validators. Only kinds present in the
// map (and the built-in kinds) are accepted by the store.
func WithValidators(vs map[Kind]Validator) Option {
	return func(s *Store) {
		for k, v := range vs {
			s.validators[k] = v
		}
	}
}

// WithValidator sets the validator for one kind.
func WithValidator(kind Kind, v Validator) Option {
	return func(s *Store) {
		s.validators[kind] = v
	}
}

// WithHooks adds lifecycle hooks, run in the order given.
func WithHooks(hooks ...Hook) Option {
	return func(s *Store) {
		s.hooks = append(s.hooks, hooks...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

// WithTracerName sets the OpenTelemetry tracer name.
func WithTracerName(name string) Option {
	return func(s *Store) {
		s.tracer = otel.Tracer(name)
	}
}

// NewStore creates a store over backend. Without WithValidators every
// built-in kind gets structural validation only.
func NewStore(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		validators: map[Kind]Validator{
			KindPage:   Structure,
			KindPrefab: Structure,
			KindTheme:  Structure,
			KindLayout: Structure,
		},
		logger: slog.Default(),
		tracer: otel.Tracer(defaultTracerName),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddHook registers a hook after construction.
func (s *Store) AddHook(h Hook) {
	s.hooks = append(s.hooks, h)
}

// KnownKind reports whether kind is accepted by the store.
func (s *Store) KnownKind(kind Kind) bool {
	_, ok := s.validators[kind]
	return ok
}

func (s *Store) checkIdentity(storeID string, kind Kind, key string) error {
	switch {
	case storeID == "":
		return invalidIdentity(storeID, kind, key, "store id is empty")
	case key == "":
		return invalidIdentity(storeID, kind, key, "key is empty")
	case !s.KnownKind(kind):
		return invalidIdentity(storeID, kind, key, "unknown kind %q", kind)
	}
	return nil
}

// begin starts the span and returns a func that finishes it and records the
// outcome of *errp.
func (s *Store) begin(ctx context.Context, op, storeID string, kind Kind, key string) (context.Context, func(errp *error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "document."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("storefront.store_id", storeID),
			attribute.String("storefront.kind", string(kind)),
			attribute.String("storefront.key", key),
		),
	)
	return ctx, func(errp *error) {
		err := *errp
		outcome := outcomeOf(err)
		elapsed := time.Since(start)
		if s.recorder != nil {
			s.recorder.ObserveStoreOp(op, outcome, elapsed)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		s.logger.Debug("document store",
			"op", op,
			"store", storeID,
			"kind", kind,
			"key", key,
			"outcome", outcome,
			"duration", elapsed,
		)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, sferrors.ErrInvalidDocument),
		errors.Is(err, sferrors.ErrInvalidIdentity),
		errors.Is(err, sferrors.ErrInvalidTheme):
		return OutcomeInvalid
	case errors.Is(err, sferrors.ErrNoDraftToPublish),
		errors.Is(err, sferrors.ErrDocumentNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// storageErr wraps a backend failure. Errors the store raised itself pass
// through unchanged.
func storageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := sferrors.As(err); ok {
		return err
	}
	return sferrors.New("E601").WithDetail(op).Wrap(err)
}

// SaveDraft validates tree against kind's rules and stores it, with meta,
// as the DRAFT slot. An existing draft is replaced whole; concurrent saves
// resolve last-writer-wins and each save bumps Version.
func (s *Store) SaveDraft(ctx context.Context, storeID string, kind Kind, key string, tree *node.Node, meta map[string]any) (doc *Document, err error) {
	ctx, done := s.begin(ctx, "save_draft", storeID, kind, key)
	defer done(&err)

	if err := s.checkIdentity(storeID, kind, key); err != nil {
		return nil, err
	}
	if vs := s.validators[kind].Validate(tree); len(vs) > 0 {
		return nil, sferrors.New("E401").
			WithDetailf("%d violation(s) in %s %q", len(vs), kind, key).
			WithLocation(storeID, string(kind), key, vs[0].NodeID).
			WithViolations(vs)
	}

	data, err := encodeDocument(tree, meta)
	if err != nil {
		return nil, sferrors.New("E401").WithDetail("tree is not JSON encodable").Wrap(err)
	}

	var row *storage.Row
	err = s.backend.Update(ctx, func(tx storage.Tx) error {
		var err error
		row, err = tx.Put(ctx, rowKey(storeID, kind, key, StatusDraft), data)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "save draft")
	}
	return decodeDocument(row)
}

// Publish copies the current DRAFT over PUBLISHED in one transaction. The
// draft is left as it is. Publishing an unchanged draft again keeps the
// published row, and its Version, as they were.
func (s *Store) Publish(ctx context.Context, storeID string, kind Kind, key string) (doc *Document, err error) {
	ctx, done := s.begin(ctx, "publish", storeID, kind, key)
	defer done(&err)

	if err := s.checkIdentity(storeID, kind, key); err != nil {
		return nil, err
	}

	var row *storage.Row
	err = s.backend.Update(ctx, func(tx storage.Tx) error {
		draft, err := tx.Get(ctx, rowKey(storeID, kind, key, StatusDraft))
		if errors.Is(err, storage.ErrNotFound) {
			return sferrors.New("E402").WithLocation(storeID, string(kind), key, "")
		}
		if err != nil {
			return err
		}

		pubKey := rowKey(storeID, kind, key, StatusPublished)
		current, err := tx.Get(ctx, pubKey)
		if err == nil && bytes.Equal(current.Data, draft.Data) {
			row = current
			return nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		row, err = tx.Put(ctx, pubKey, draft.Data)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "publish")
	}

	doc, err = decodeDocument(row)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, Event{
		Type:     EventPublished,
		StoreID:  storeID,
		Kind:     kind,
		Key:      key,
		Version:  doc.Version,
		At:       s.now(),
		Document: doc,
	})
	return doc, nil
}

// GetDraft returns the DRAFT slot. A missing draft is reported through ok,
// not as an error.
func (s *Store) GetDraft(ctx context.Context, storeID string, kind Kind, key string) (*Document, bool, error) {
	return s.get(ctx, storeID, kind, key, StatusDraft)
}

// GetPublished returns the PUBLISHED slot.
func (s *Store) GetPublished(ctx context.Context, storeID string, kind Kind, key string) (*Document, bool, error) {
	return s.get(ctx, storeID, kind, key, StatusPublished)
}

func (s *Store) get(ctx context.Context, storeID string, kind Kind, key string, status Status) (doc *Document, ok bool, err error) {
	ctx, done := s.begin(ctx, "get_"+lower(status), storeID, kind, key)
	defer done(&err)

	if err := s.checkIdentity(storeID, kind, key); err != nil {
		return nil, false, err
	}
	row, err := s.backend.Get(ctx, rowKey(storeID, kind, key, status))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr(err, "get "+lower(status))
	}
	doc, err = decodeDocument(row)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// GetPublishedOrFallback returns the published document, or when there is
// none, the published PREFAB named prefabKey. An empty prefabKey disables
// the fallback.
func (s *Store) GetPublishedOrFallback(ctx context.Context, storeID string, kind Kind, key, prefabKey string) (*Document, bool, error) {
	doc, ok, err := s.GetPublished(ctx, storeID, kind, key)
	if err != nil || ok || prefabKey == "" {
		return doc, ok, err
	}
	return s.GetPublished(ctx, storeID, KindPrefab, prefabKey)
}

// DeleteDraft removes the DRAFT slot and reports whether it existed. The
// published slot is not touched.
func (s *Store) DeleteDraft(ctx context.Context, storeID string, kind Kind, key string) (bool, error) {
	return s.delete(ctx, "delete_draft", storeID, kind, key, StatusDraft)
}

// Unpublish removes the PUBLISHED slot and reports whether it existed. The
// draft is not touched.
func (s *Store) Unpublish(ctx context.Context, storeID string, kind Kind, key string) (bool, error) {
	existed, err := s.delete(ctx, "unpublish", storeID, kind, key, StatusPublished)
	if err == nil && existed {
		s.emit(ctx, Event{Type: EventUnpublished, StoreID: storeID, Kind: kind, Key: key, At: s.now()})
	}
	return existed, err
}

func (s *Store) delete(ctx context.Context, op, storeID string, kind Kind, key string, status Status) (existed bool, err error) {
	ctx, done := s.begin(ctx, op, storeID, kind, key)
	defer done(&err)

	if err := s.checkIdentity(storeID, kind, key); err != nil {
		return false, err
	}
	err = s.backend.Update(ctx, func(tx storage.Tx) error {
		var err error
		existed, err = tx.Delete(ctx, rowKey(storeID, kind, key, status))
		return err
	})
	return existed, storageErr(err, op)
}

// List returns a store's documents. An empty kind or status matches all.
func (s *Store) List(ctx context.Context, storeID string, kind Kind, status Status) (docs []*Document, err error) {
	ctx, done := s.begin(ctx, "list", storeID, kind, "")
	defer done(&err)

	if storeID == "" {
		return nil, invalidIdentity(storeID, kind, "", "store id is empty")
	}
	if kind != "" && !s.KnownKind(kind) {
		return nil, invalidIdentity(storeID, kind, "", "unknown kind %q", kind)
	}

	rows, err := s.backend.List(ctx, storage.Filter{StoreID: storeID, Kind: string(kind), Status: string(status)})
	if err != nil {
		return nil, storageErr(err, "list")
	}
	docs = make([]*Document, 0, len(rows))
	for _, r := range rows {
		if r.Kind == themeRowKind {
			continue
		}
		doc, err := decodeDocument(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Diff compares the PUBLISHED tree (before) with the DRAFT tree (after).
// A missing slot counts as an empty tree; both missing is ErrDocumentNotFound.
func (s *Store) Diff(ctx context.Context, storeID string, kind Kind, key string) ([]node.Change, error) {
	draft, hasDraft, err := s.GetDraft(ctx, storeID, kind, key)
	if err != nil {
		return nil, err
	}
	pub, hasPub, err := s.GetPublished(ctx, storeID, kind, key)
	if err != nil {
		return nil, err
	}
	if !hasDraft && !hasPub {
		return nil, sferrors.New("E403").WithLocation(storeID, string(kind), key, "")
	}

	var before, after *node.Node
	if hasPub {
		before = pub.Tree
	}
	if hasDraft {
		after = draft.Tree
	}
	return node.Diff(before, after), nil
}

// emit runs every hook with its own copy of ev.
func (s *Store) emit(ctx context.Context, ev Event) {
	for _, h := range s.hooks {
		if err := h.OnEvent(ctx, ev.clone()); err != nil {
			s.logger.Warn("lifecycle hook failed",
				"event", ev.Type,
				"store", ev.StoreID,
				"kind", ev.Kind,
				"key", ev.Key,
				"error", err,
			)
		}
	}
}

func lower(st Status) string {
	if st == StatusDraft {
		return "draft"
	}
	return "published"
}

// Package events announces document lifecycle changes on NATS.
//
// Subjects:
//
//	<prefix>.<store>.<kind>.published
//	<prefix>.<store>.<kind>.unpublished
//	<prefix>.<store>.theme.published
//
// Subscribers such as CDN purgers and search indexers listen with
// wildcards, e.g. "storefront.*.PAGE.published".
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vango-dev/storefront/pkg/document"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured.
const DefaultSubjectPrefix = "storefront"

// Publisher sends a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the payload published for each event. It carries the
// identity and version, not the tree.
type Message struct {
	Type    document.EventType `json:"type"`
	StoreID string             `json:"storeId"`
	Kind    document.Kind      `json:"kind,omitempty"`
	Key     string             `json:"key,omitempty"`
	Version int64              `json:"version"`
	At      time.Time          `json:"at"`
}

// NATSNotifier publishes lifecycle events. It implements document.Hook.
type NATSNotifier struct {
	pub    Publisher
	prefix string
	nc     *nats.Conn
	logger *slog.Logger
}

// Option configures a NATSNotifier.
type Option func(*NATSNotifier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *NATSNotifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNATSNotifier creates a notifier publishing through pub.
func NewNATSNotifier(pub Publisher, prefix string, opts ...Option) *NATSNotifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	n := &NATSNotifier{pub: pub, prefix: prefix, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Connect dials url and returns a notifier that owns the connection.
func Connect(url, prefix string, opts ...Option) (*NATSNotifier, error) {
	nc, err := nats.Connect(url, nats.Name("storefront-events"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	n := NewNATSNotifier(nc, prefix, opts...)
	n.nc = nc
	return n, nil
}

// Close flushes and closes the connection if the notifier owns one.
func (n *NATSNotifier) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}

// Subject returns the subject ev is published on.
func (n *NATSNotifier) Subject(ev document.Event) string {
	switch ev.Type {
	case document.EventThemePublished:
		return strings.Join([]string{n.prefix, token(ev.StoreID), "theme", "published"}, ".")
	case document.EventUnpublished:
		return strings.Join([]string{n.prefix, token(ev.StoreID), token(string(ev.Kind)), "unpublished"}, ".")
	default:
		return strings.Join([]string{n.prefix, token(ev.StoreID), token(string(ev.Kind)), "published"}, ".")
	}
}

// OnEvent publishes ev.
func (n *NATSNotifier) OnEvent(_ context.Context, ev document.Event) error {
	data, err := json.Marshal(Message{
		Type:    ev.Type,
		StoreID: ev.StoreID,
		Kind:    ev.Kind,
		Key:     ev.Key,
		Version: ev.Version,
		At:      ev.At,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := n.Subject(ev)
	if err := n.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	n.logger.Debug("event published", "subject", subject, "key", ev.Key)
	return nil
}

// token replaces characters NATS reserves in subjects.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

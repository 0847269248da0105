package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/internal/storage"
	"github.com/vango-dev/storefront/pkg/node"
)

// Kind classifies a document.
type Kind string

const (
	KindPage   Kind = "PAGE"
	KindPrefab Kind = "PREFAB"
	KindTheme  Kind = "THEME"
	KindLayout Kind = "LAYOUT"
)

// ParseKind normalizes s ("page", "Page") to a Kind.
func ParseKind(s string) Kind {
	return Kind(strings.ToUpper(strings.TrimSpace(s)))
}

// Status is a document's lifecycle slot.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

// ParseStatus normalizes s and reports whether it names a status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	return st, st == StatusDraft || st == StatusPublished
}

// Document is one status slot of a storefront document.
type Document struct {
	StoreID   string         `json:"storeId"`
	Kind      Kind           `json:"kind"`
	Key       string         `json:"key"`
	Status    Status         `json:"status"`
	Tree      *node.Node     `json:"tree"`
	Meta      map[string]any `json:"meta,omitempty"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Theme is one status slot of a store's theme variables.
type Theme struct {
	StoreID   string            `json:"storeId"`
	Status    Status            `json:"status"`
	Variables map[string]string `json:"variables"`
	Version   int64             `json:"version"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Rows for theme variables live beside documents under a kind no document
// can use.
const (
	themeRowKind = "_theme"
	themeRowKey  = "variables"
)

type documentPayload struct {
	Tree *node.Node     `json:"tree"`
	Meta map[string]any `json:"meta,omitempty"`
}

type themePayload struct {
	Variables map[string]string `json:"variables"`
}

func rowKey(storeID string, kind Kind, key string, status Status) storage.RowKey {
	return storage.RowKey{StoreID: storeID, Kind: string(kind), Key: key, Status: string(status)}
}

func themeKey(storeID string, status Status) storage.RowKey {
	return storage.RowKey{StoreID: storeID, Kind: themeRowKind, Key: themeRowKey, Status: string(status)}
}

func encodeDocument(tree *node.Node, meta map[string]any) ([]byte, error) {
	return json.Marshal(documentPayload{Tree: tree, Meta: meta})
}

func decodeDocument(r *storage.Row) (*Document, error) {
	var p documentPayload
	if err := json.Unmarshal(r.Data, &p); err != nil {
		return nil, fmt.Errorf("decode %s/%s/%s: %w", r.StoreID, r.Kind, r.Key, err)
	}
	return &Document{
		StoreID:   r.StoreID,
		Kind:      Kind(r.Kind),
		Key:       r.Key,
		Status:    Status(r.Status),
		Tree:      p.Tree,
		Meta:      p.Meta,
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func decodeTheme(r *storage.Row) (*Theme, error) {
	var p themePayload
	if err := json.Unmarshal(r.Data, &p); err != nil {
		return nil, fmt.Errorf("decode theme %s: %w", r.StoreID, err)
	}
	if p.Variables == nil {
		p.Variables = map[string]string{}
	}
	return &Theme{
		StoreID:   r.StoreID,
		Status:    Status(r.Status),
		Variables: p.Variables,
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func invalidIdentity(storeID string, kind Kind, key, format string, args ...any) error {
	return sferrors.New("E404").
		WithDetailf(format, args...).
		WithLocation(storeID, string(kind), key, "")
}

// Package storage implements the keyed row stores behind the document
// store.
//
// A row is one status slot (DRAFT or PUBLISHED) of one identity
// (store, kind, key). Rows hold an opaque JSON payload plus a version that
// the backend increments on every write.
//
// Three backends are provided:
//
//   - Memory: process-local, for tests and development
//   - SQLite: a single file via modernc.org/sqlite
//   - KV: a NATS JetStream key-value bucket
package storage

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("row not found")

// ErrConflict is returned when a transaction lost a race it could not retry.
var ErrConflict = errors.New("concurrent modification")

// RowKey identifies one row.
type RowKey struct {
	StoreID string
	Kind    string
	Key     string
	Status  string
}

// Row is a stored payload with its bookkeeping.
type Row struct {
	RowKey
	Data      []byte
	Version   int64
	UpdatedAt time.Time
}

// Clone returns a copy of r that shares nothing with it.
func (r *Row) Clone() *Row {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Data = append([]byte(nil), r.Data...)
	return &cp
}

// Filter selects rows for List. Empty fields match everything, except
// StoreID which is required.
type Filter struct {
	StoreID string
	Kind    string
	Status  string
}

func (f Filter) match(k RowKey) bool {
	return k.StoreID == f.StoreID &&
		(f.Kind == "" || k.Kind == f.Kind) &&
		(f.Status == "" || k.Status == f.Status)
}

// Backend defines the interface for storage backends.
type Backend interface {
	// Get returns the row for k, or ErrNotFound.
	Get(ctx context.Context, k RowKey) (*Row, error)

	// List returns the rows matching f, ordered by kind, key, then status.
	List(ctx context.Context, f Filter) ([]*Row, error)

	// Update runs fn in a transaction. Writes made through tx become
	// visible together when fn returns nil and are discarded otherwise.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the backend's resources.
	Close() error
}

// Tx is the view of a backend inside Update.
type Tx interface {
	// Get returns the row for k as seen by this transaction.
	Get(ctx context.Context, k RowKey) (*Row, error)

	// Put creates or replaces the row for k and returns the stored row.
	// The version is one more than the previous row's, starting at 1.
	Put(ctx context.Context, k RowKey, data []byte) (*Row, error)

	// Delete removes the row for k and reports whether it existed.
	Delete(ctx context.Context, k RowKey) (bool, error)
}

// Clock returns the current time; backends use it for UpdatedAt.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

func sortRows(rows []*Row) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Status < b.Status
	})
}

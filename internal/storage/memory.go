package storage

import (
	"context"
	"sync"
)

// MemoryBackend is an in-memory storage backend.
type MemoryBackend struct {
	mu    sync.RWMutex
	rows  map[RowKey]*Row
	clock Clock
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rows:  make(map[RowKey]*Row),
		clock: defaultClock,
	}
}

// SetClock replaces the time source used for UpdatedAt.
func (m *MemoryBackend) SetClock(c Clock) {
	m.mu.Lock()
	m.clock = c
	m.mu.Unlock()
}

// Get returns a copy of the row for k.
func (m *MemoryBackend) Get(_ context.Context, k RowKey) (*Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rows[k]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// List returns copies of the rows matching f.
func (m *MemoryBackend) List(_ context.Context, f Filter) ([]*Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Row
	for k, r := range m.rows {
		if f.match(k) {
			out = append(out, r.Clone())
		}
	}
	sortRows(out)
	return out, nil
}

// Update runs fn under the write lock. Writes are buffered and applied
// only if fn succeeds.
func (m *MemoryBackend) Update(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{m: m, writes: make(map[RowKey]*Row)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, r := range tx.writes {
		if r == nil {
			delete(m.rows, k)
			continue
		}
		m.rows[k] = r
	}
	return nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}

type memoryTx struct {
	m *MemoryBackend
	// nil marks a delete
	writes map[RowKey]*Row
}

func (tx *memoryTx) lookup(k RowKey) (*Row, bool) {
	if r, ok := tx.writes[k]; ok {
		return r, r != nil
	}
	r, ok := tx.m.rows[k]
	return r, ok
}

func (tx *memoryTx) Get(_ context.Context, k RowKey) (*Row, error) {
	r, ok := tx.lookup(k)
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (tx *memoryTx) Put(_ context.Context, k RowKey, data []byte) (*Row, error) {
	var version int64 = 1
	if prev, ok := tx.lookup(k); ok {
		version = prev.Version + 1
	}
	r := &Row{
		RowKey:    k,
		Data:      append([]byte(nil), data...),
		Version:   version,
		UpdatedAt: tx.m.clock(),
	}
	tx.writes[k] = r
	return r.Clone(), nil
}

func (tx *memoryTx) Delete(_ context.Context, k RowKey) (bool, error) {
	_, ok := tx.lookup(k)
	if ok {
		tx.writes[k] = nil
	}
	return ok, nil
}

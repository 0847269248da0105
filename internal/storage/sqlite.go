package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS storefront_rows (
		store_id   TEXT NOT NULL,
		kind       TEXT NOT NULL,
		key        TEXT NOT NULL,
		status     TEXT NOT NULL,
		data       BLOB NOT NULL,
		version    INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (store_id, kind, key, status)
	);
`

// SQLiteBackend is a SQLite storage backend.
type SQLiteBackend struct {
	db    *sql.DB
	clock Clock
}

// NewSQLiteBackend opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteBackend{db: db, clock: defaultClock}, nil
}

// SetClock replaces the time source used for UpdatedAt.
func (s *SQLiteBackend) SetClock(c Clock) {
	s.clock = c
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRow(ctx context.Context, q queryer, k RowKey) (*Row, error) {
	r := &Row{RowKey: k}
	var updated int64
	err := q.QueryRowContext(ctx, `
		SELECT data, version, updated_at FROM storefront_rows
		WHERE store_id = ? AND kind = ? AND key = ? AND status = ?
	`, k.StoreID, k.Kind, k.Key, k.Status).Scan(&r.Data, &r.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.UpdatedAt = time.Unix(0, updated).UTC()
	return r, nil
}

// Get loads the row for k.
func (s *SQLiteBackend) Get(ctx context.Context, k RowKey) (*Row, error) {
	return getRow(ctx, s.db, k)
}

// List loads the rows matching f.
func (s *SQLiteBackend) List(ctx context.Context, f Filter) ([]*Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, key, status, data, version, updated_at FROM storefront_rows
		WHERE store_id = ? AND (? = '' OR kind = ?) AND (? = '' OR status = ?)
		ORDER BY kind, key, status
	`, f.StoreID, f.Kind, f.Kind, f.Status, f.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		r := &Row{RowKey: RowKey{StoreID: f.StoreID}}
		var updated int64
		if err := rows.Scan(&r.Kind, &r.Key, &r.Status, &r.Data, &r.Version, &updated); err != nil {
			return nil, err
		}
		r.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Update runs fn inside a SQL transaction.
func (s *SQLiteBackend) Update(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&sqliteTx{tx: sqlTx, clock: s.clock}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

// Close closes the database.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	tx    *sql.Tx
	clock Clock
}

func (t *sqliteTx) Get(ctx context.Context, k RowKey) (*Row, error) {
	return getRow(ctx, t.tx, k)
}

func (t *sqliteTx) Put(ctx context.Context, k RowKey, data []byte) (*Row, error) {
	var version int64 = 1
	prev, err := getRow(ctx, t.tx, k)
	switch {
	case err == nil:
		version = prev.Version + 1
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	r := &Row{
		RowKey:    k,
		Data:      append([]byte(nil), data...),
		Version:   version,
		UpdatedAt: t.clock(),
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO storefront_rows (store_id, kind, key, status, data, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, k.StoreID, k.Kind, k.Key, k.Status, r.Data, r.Version, r.UpdatedAt.UnixNano())
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (t *sqliteTx) Delete(ctx context.Context, k RowKey) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM storefront_rows
		WHERE store_id = ? AND kind = ? AND key = ? AND status = ?
	`, k.StoreID, k.Kind, k.Key, k.Status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

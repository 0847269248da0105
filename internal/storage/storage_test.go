package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

var errAbort = errors.New("abort")

func draftKey(store, key string) RowKey {
	return RowKey{StoreID: store, Kind: "PAGE", Key: key, Status: "DRAFT"}
}

func put(t *testing.T, b Backend, k RowKey, data string) *Row {
	t.Helper()
	var out *Row
	err := b.Update(context.Background(), func(tx Tx) error {
		r, err := tx.Put(context.Background(), k, []byte(data))
		out = r
		return err
	})
	require.NoError(t, err)
	return out
}

// runBackendSuite checks the behavior every Backend must share.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(ctx, draftKey("s1", "home"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put increments version", func(t *testing.T) {
		b := newBackend(t)
		k := draftKey("s1", "home")

		r1 := put(t, b, k, `{"v":1}`)
		r2 := put(t, b, k, `{"v":2}`)
		assert.Equal(t, int64(1), r1.Version)
		assert.Equal(t, int64(2), r2.Version)

		got, err := b.Get(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(got.Data))
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, k, got.RowKey)
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		b := newBackend(t)
		k := draftKey("s1", "home")
		put(t, b, k, `{"v":1}`)

		err := b.Update(ctx, func(tx Tx) error {
			if _, err := tx.Put(ctx, k, []byte(`{"v":99}`)); err != nil {
				return err
			}
			if _, err := tx.Put(ctx, draftKey("s1", "about"), []byte(`{}`)); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		got, err := b.Get(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1}`, string(got.Data))
		_, err = b.Get(ctx, draftKey("s1", "about"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("transaction reads its own writes", func(t *testing.T) {
		b := newBackend(t)
		k := draftKey("s1", "home")
		err := b.Update(ctx, func(tx Tx) error {
			if _, err := tx.Put(ctx, k, []byte(`{"v":1}`)); err != nil {
				return err
			}
			r, err := tx.Get(ctx, k)
			if err != nil {
				return err
			}
			assert.JSONEq(t, `{"v":1}`, string(r.Data))
			ok, err := tx.Delete(ctx, k)
			assert.True(t, ok)
			return err
		})
		require.NoError(t, err)
		_, err = b.Get(ctx, k)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		b := newBackend(t)
		k := draftKey("s1", "home")
		put(t, b, k, `{}`)

		var existed bool
		require.NoError(t, b.Update(ctx, func(tx Tx) error {
			var err error
			existed, err = tx.Delete(ctx, k)
			return err
		}))
		assert.True(t, existed)

		require.NoError(t, b.Update(ctx, func(tx Tx) error {
			var err error
			existed, err = tx.Delete(ctx, k)
			return err
		}))
		assert.False(t, existed)

		// A recreated row starts over at version 1.
		assert.Equal(t, int64(1), put(t, b, k, `{}`).Version)
	})

	t.Run("statuses are independent rows", func(t *testing.T) {
		b := newBackend(t)
		draft := draftKey("s1", "home")
		pub := draft
		pub.Status = "PUBLISHED"

		put(t, b, draft, `{"d":1}`)
		put(t, b, pub, `{"p":1}`)
		put(t, b, draft, `{"d":2}`)

		got, err := b.Get(ctx, pub)
		require.NoError(t, err)
		assert.JSONEq(t, `{"p":1}`, string(got.Data))
	})

	t.Run("list filters and orders", func(t *testing.T) {
		b := newBackend(t)
		put(t, b, draftKey("s1", "b"), `{}`)
		put(t, b, draftKey("s1", "a"), `{}`)
		put(t, b, RowKey{StoreID: "s1", Kind: "PAGE", Key: "a", Status: "PUBLISHED"}, `{}`)
		put(t, b, RowKey{StoreID: "s1", Kind: "PREFAB", Key: "hero", Status: "DRAFT"}, `{}`)
		put(t, b, draftKey("s2", "a"), `{}`)
		put(t, b, draftKey("s1 with spaces", "a"), `{}`)

		rows, err := b.List(ctx, Filter{StoreID: "s1", Kind: "PAGE"})
		require.NoError(t, err)
		var got []string
		for _, r := range rows {
			got = append(got, r.Key+"/"+r.Status)
		}
		assert.Equal(t, []string{"a/DRAFT", "a/PUBLISHED", "b/DRAFT"}, got)

		rows, err = b.List(ctx, Filter{StoreID: "s1", Status: "DRAFT"})
		require.NoError(t, err)
		assert.Len(t, rows, 3)

		rows, err = b.List(ctx, Filter{StoreID: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, rows)

		rows, err = b.List(ctx, Filter{StoreID: "s1 with spaces"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "s1 with spaces", rows[0].StoreID)
	})

	t.Run("returned rows are copies", func(t *testing.T) {
		b := newBackend(t)
		k := draftKey("s1", "home")
		put(t, b, k, `{"v":1}`)

		got, err := b.Get(ctx, k)
		require.NoError(t, err)
		got.Data[0] = 'X'

		again, err := b.Get(ctx, k)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1}`, string(again.Data))
	})

	t.Run("concurrent writers all land", func(t *testing.T) {
		b := newBackend(t)
		k := draftKey("s1", "home")
		const writers = 8

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := b.Update(ctx, func(tx Tx) error {
					_, err := tx.Put(ctx, k, []byte(`{}`))
					return err
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := b.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, int64(writers), got.Version)
	})
}

func TestMemoryBackend(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend {
		return NewMemoryBackend()
	})
}

func TestSQLiteBackend(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend {
		path := filepath.Join(t.TempDir(), "storefront.db")
		b, err := NewSQLiteBackend(context.Background(), path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return b
	})
}

func TestSQLiteBackendPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storefront.db")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	b, err := NewSQLiteBackend(ctx, path)
	require.NoError(t, err)
	b.SetClock(func() time.Time { return at })
	put(t, b, draftKey("s1", "home"), `{"v":1}`)
	require.NoError(t, b.Close())

	b, err = NewSQLiteBackend(ctx, path)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Get(ctx, draftKey("s1", "home"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got.Data))
	assert.True(t, got.UpdatedAt.Equal(at))
}

func TestKVBackend(t *testing.T) {
	url := os.Getenv("STOREFRONT_TEST_NATS_URL")
	if url == "" {
		t.Skip("STOREFRONT_TEST_NATS_URL not set")
	}
	n := 0
	runBackendSuite(t, func(t *testing.T) Backend {
		n++
		bucket := "STOREFRONT_TEST_" + time.Now().Format("150405") + "_" + string(rune('A'+n))
		b, err := ConnectKV(context.Background(), url, bucket)
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return b
	})
}

func TestKVKeyRoundTrip(t *testing.T) {
	tests := []RowKey{
		{StoreID: "s1", Kind: "PAGE", Key: "home", Status: "DRAFT"},
		{StoreID: "acme.com", Kind: "PAGE", Key: "products/shoes", Status: "PUBLISHED"},
		{StoreID: "s1", Kind: "THEME", Key: "", Status: "DRAFT"},
		{StoreID: "=odd", Kind: "PREFAB", Key: "hero banner", Status: "DRAFT"},
	}
	for _, k := range tests {
		key := kvKey(k)
		assert.Regexp(t, `^[-/_=.A-Za-z0-9]+$`, key)
		got, err := parseKVKey(key)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := parseKVKey("a.b.c")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = Open(ctx, Options{Driver: DriverSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBackend{}, b)
	require.NoError(t, b.Close())

	_, err = Open(ctx, Options{Driver: "postgres"})
	assert.ErrorIs(t, err, sferrors.ErrUnsupportedDriver)
}

package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the KV bucket used when none is configured.
const DefaultBucket = "STOREFRONT_DOCUMENTS"

// maxCommitAttempts bounds how often a KV transaction is replayed after
// losing an optimistic-concurrency race.
const maxCommitAttempts = 16

var plainToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// KVBackend stores rows in a NATS JetStream key-value bucket, one entry per
// row under "<store>.<kind>.<key>.<status>".
//
// JetStream has no multi-key transactions. Update buffers writes and
// commits each key with a revision check, replaying fn when another writer
// got there first. A transaction that writes several keys is therefore
// atomic per key only.
type KVBackend struct {
	kv    jetstream.KeyValue
	nc    *nats.Conn
	clock Clock
}

type kvEnvelope struct {
	Data      []byte    `json:"data"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConnectKV dials url and opens (creating if needed) bucket. The returned
// backend owns the connection.
func ConnectKV(ctx context.Context, url, bucket string) (*KVBackend, error) {
	nc, err := nats.Connect(url, nats.Name("storefront"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	b, err := NewKVBackend(ctx, js, bucket)
	if err != nil {
		nc.Close()
		return nil, err
	}
	b.nc = nc
	return b, nil
}

// NewKVBackend opens (creating if needed) bucket on js.
func NewKVBackend(ctx context.Context, js jetstream.JetStream, bucket string) (*KVBackend, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("create %s bucket: %w", bucket, err)
	}
	return &KVBackend{kv: kv, clock: defaultClock}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Storefront documents and themes",
		History:     5,
	})
}

// SetClock replaces the time source used for UpdatedAt.
func (b *KVBackend) SetClock(c Clock) {
	b.clock = c
}

// encodeToken makes s usable as one dot-separated KV key token. Tokens
// outside [A-Za-z0-9_-] are base64url encoded behind a leading '='.
func encodeToken(s string) string {
	if plainToken.MatchString(s) {
		return s
	}
	return "=" + base64.RawURLEncoding.EncodeToString([]byte(s))
}

func decodeToken(tok string) (string, error) {
	if !strings.HasPrefix(tok, "=") {
		return tok, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok[1:])
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func kvKey(k RowKey) string {
	return strings.Join([]string{
		encodeToken(k.StoreID),
		encodeToken(k.Kind),
		encodeToken(k.Key),
		encodeToken(k.Status),
	}, ".")
}

func parseKVKey(key string) (RowKey, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 4 {
		return RowKey{}, fmt.Errorf("malformed key %q", key)
	}
	var fields [4]string
	for i, p := range parts {
		v, err := decodeToken(p)
		if err != nil {
			return RowKey{}, fmt.Errorf("malformed key %q: %w", key, err)
		}
		fields[i] = v
	}
	return RowKey{StoreID: fields[0], Kind: fields[1], Key: fields[2], Status: fields[3]}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}

func isConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

// fetch returns the row and its revision. A missing key yields ErrNotFound.
func (b *KVBackend) fetch(ctx context.Context, k RowKey) (*Row, uint64, error) {
	entry, err := b.kv.Get(ctx, kvKey(k))
	if err != nil {
		if isNotFound(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("get %s: %w", kvKey(k), err)
	}
	var env kvEnvelope
	if err := json.Unmarshal(entry.Value(), &env); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", entry.Key(), err)
	}
	return &Row{
		RowKey:    k,
		Data:      env.Data,
		Version:   env.Version,
		UpdatedAt: env.UpdatedAt.UTC(),
	}, entry.Revision(), nil
}

// Get loads the row for k.
func (b *KVBackend) Get(ctx context.Context, k RowKey) (*Row, error) {
	r, _, err := b.fetch(ctx, k)
	return r, err
}

// List scans the bucket's keys for those matching f.
func (b *KVBackend) List(ctx context.Context, f Filter) ([]*Row, error) {
	keys, err := b.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}

	prefix := encodeToken(f.StoreID) + "."
	var out []*Row
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		k, err := parseKVKey(key)
		if err != nil || !f.match(k) {
			continue
		}
		r, err := b.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue // deleted between Keys and Get
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortRows(out)
	return out, nil
}

// Update runs fn and commits its writes with per-key revision checks,
// replaying fn if a concurrent writer invalidated a read.
func (b *KVBackend) Update(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 1; ; attempt++ {
		tx := &kvTx{b: b, reads: make(map[RowKey]kvRead), writes: make(map[RowKey]*Row)}
		if err := fn(tx); err != nil {
			return err
		}
		err := tx.commit(ctx)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return err
		}
		if attempt == maxCommitAttempts {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
}

// Close drains the connection if the backend owns one.
func (b *KVBackend) Close() error {
	if b.nc == nil {
		return nil
	}
	return b.nc.Drain()
}

type kvRead struct {
	row *Row
	rev uint64
}

type kvTx struct {
	b      *KVBackend
	reads  map[RowKey]kvRead
	writes map[RowKey]*Row // nil marks a delete
	order  []RowKey
}

func (tx *kvTx) lookup(ctx context.Context, k RowKey) (*Row, error) {
	if r, ok := tx.writes[k]; ok {
		if r == nil {
			return nil, ErrNotFound
		}
		return r, nil
	}
	if rd, ok := tx.reads[k]; ok {
		if rd.row == nil {
			return nil, ErrNotFound
		}
		return rd.row, nil
	}
	r, rev, err := tx.b.fetch(ctx, k)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	tx.reads[k] = kvRead{row: r, rev: rev}
	if r == nil {
		return nil, ErrNotFound
	}
	return r, nil
}

func (tx *kvTx) record(k RowKey, r *Row) {
	if _, ok := tx.writes[k]; !ok {
		tx.order = append(tx.order, k)
	}
	tx.writes[k] = r
}

func (tx *kvTx) Get(ctx context.Context, k RowKey) (*Row, error) {
	r, err := tx.lookup(ctx, k)
	if err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

func (tx *kvTx) Put(ctx context.Context, k RowKey, data []byte) (*Row, error) {
	var version int64 = 1
	prev, err := tx.lookup(ctx, k)
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
		UpdatedAt: tx.b.clock(),
	}
	tx.record(k, r)
	return r.Clone(), nil
}

func (tx *kvTx) Delete(ctx context.Context, k RowKey) (bool, error) {
	_, err := tx.lookup(ctx, k)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	tx.record(k, nil)
	return true, nil
}

func (tx *kvTx) commit(ctx context.Context) error {
	for _, k := range tx.order {
		r := tx.writes[k]
		rev := tx.reads[k].rev
		key := kvKey(k)

		if r == nil {
			if rev == 0 {
				continue // created and deleted inside this transaction
			}
			if err := tx.b.kv.Delete(ctx, key, jetstream.LastRevision(rev)); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			continue
		}

		val, err := json.Marshal(kvEnvelope{Data: r.Data, Version: r.Version, UpdatedAt: r.UpdatedAt})
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if rev == 0 {
			_, err = tx.b.kv.Create(ctx, key, val)
		} else {
			_, err = tx.b.kv.Update(ctx, key, val, rev)
		}
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	return nil
}

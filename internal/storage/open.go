package storage

import (
	"context"
	"fmt"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverNATS   = "nats"
)

// Options selects and configures a backend.
type Options struct {
	Driver     string
	SQLitePath string
	NATSURL    string
	NATSBucket string
}

// Open creates the backend named by opts.Driver. An empty driver means
// memory.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemoryBackend(), nil
	case DriverSQLite:
		b, err := NewSQLiteBackend(ctx, opts.SQLitePath)
		if err != nil {
			return nil, sferrors.New("E601").WithDetailf("open sqlite %s", opts.SQLitePath).Wrap(err)
		}
		return b, nil
	case DriverNATS:
		b, err := ConnectKV(ctx, opts.NATSURL, opts.NATSBucket)
		if err != nil {
			return nil, sferrors.New("E601").WithDetailf("open nats kv at %s", opts.NATSURL).Wrap(err)
		}
		return b, nil
	default:
		return nil, sferrors.New("E602").WithDetail(fmt.Sprintf("driver %q", opts.Driver))
	}
}

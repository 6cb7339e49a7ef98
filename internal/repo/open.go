package repo

import (
	"context"
	"fmt"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Options — выбор и параметры адаптера.
type Options struct {
	Driver     string // postgres | sqlite | redis | memory
	DSN        string // для postgres (пусто — DB_URL)
	SQLitePath string // для sqlite
	Redis      RedisConfig
}

// Open создаёт адаптер по Options.
func Open(ctx context.Context, opts Options) (Adapter, error) {
	switch opts.Driver {
	case DriverPostgres, "":
		pool, err := NewPool(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		a := NewPostgresAdapter(pool)
		if err := a.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return a, nil

	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = "uvd.db"
		}
		return OpenSQLite(ctx, path)

	case DriverRedis:
		return NewRedisAdapter(ctx, opts.Redis)

	case DriverMemory:
		return NewMemoryAdapter(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

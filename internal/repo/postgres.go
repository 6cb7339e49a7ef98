package repo

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

//go:embed schema/postgres.sql
var postgresSchema string

// PostgresAdapter — хранилище заявок в Postgres.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

// NewPostgresAdapter создаёт адаптер поверх пула.
func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

// EnsureSchema создаёт таблицу, если её нет.
func (a *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save создаёт или заменяет запись.
func (a *PostgresAdapter) Save(ctx context.Context, kind domain.Kind, key domain.Key, rec *domain.Request) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO uvd_requests (kind, key, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kind, key) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	_, err = a.pool.Exec(ctx, query,
		kind.String(),
		int64(key),
		data,
		rec.CreatedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert request %s/%d: %w", kind, key, err)
	}
	return nil
}

// Delete удаляет запись.
func (a *PostgresAdapter) Delete(ctx context.Context, kind domain.Kind, key domain.Key) error {
	query := `DELETE FROM uvd_requests WHERE kind = $1 AND key = $2`
	if _, err := a.pool.Exec(ctx, query, kind.String(), int64(key)); err != nil {
		return fmt.Errorf("delete request %s/%d: %w", kind, key, err)
	}
	return nil
}

// LoadAll возвращает все записи типа.
func (a *PostgresAdapter) LoadAll(ctx context.Context, kind domain.Kind) (map[domain.Key]*domain.Request, error) {
	query := `SELECT key, data FROM uvd_requests WHERE kind = $1`
	rows, err := a.pool.Query(ctx, query, kind.String())
	if err != nil {
		return nil, fmt.Errorf("query requests %s: %w", kind, err)
	}
	defer rows.Close()

	out := make(map[domain.Key]*domain.Request)
	for rows.Next() {
		var (
			key  int64
			data []byte
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		rec, err := decode(kind, domain.Key(key), data)
		if err != nil {
			return nil, err
		}
		out[rec.Key] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

// Close закрывает пул.
func (a *PostgresAdapter) Close() error {
	a.pool.Close()
	return nil
}

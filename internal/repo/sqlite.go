package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

// SQLiteAdapter — встроенное хранилище заявок в файле SQLite.
type SQLiteAdapter struct {
	db *sql.DB
}

// OpenSQLite открывает (или создаёт) базу по пути path и применяет схему.
// ":memory:" — база в памяти.
func OpenSQLite(ctx context.Context, path string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Одно соединение: иначе у каждого своя база ":memory:"
	db.SetMaxOpenConns(1)

	a := NewSQLiteAdapter(db)
	if err := a.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// NewSQLiteAdapter создаёт адаптер поверх открытой базы.
func NewSQLiteAdapter(db *sql.DB) *SQLiteAdapter {
	return &SQLiteAdapter{db: db}
}

// EnsureSchema создаёт таблицу, если её нет.
func (a *SQLiteAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save создаёт или заменяет запись.
func (a *SQLiteAdapter) Save(ctx context.Context, kind domain.Kind, key domain.Key, rec *domain.Request) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO uvd_requests (kind, key, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, key) DO UPDATE
		SET data = excluded.data, updated_at = excluded.updated_at
	`
	_, err = a.db.ExecContext(ctx, query,
		kind.String(),
		int64(key),
		string(data),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert request %s/%d: %w", kind, key, err)
	}
	return nil
}

// Delete удаляет запись.
func (a *SQLiteAdapter) Delete(ctx context.Context, kind domain.Kind, key domain.Key) error {
	query := `DELETE FROM uvd_requests WHERE kind = ? AND key = ?`
	if _, err := a.db.ExecContext(ctx, query, kind.String(), int64(key)); err != nil {
		return fmt.Errorf("delete request %s/%d: %w", kind, key, err)
	}
	return nil
}

// LoadAll возвращает все записи типа.
func (a *SQLiteAdapter) LoadAll(ctx context.Context, kind domain.Kind) (map[domain.Key]*domain.Request, error) {
	query := `SELECT key, data FROM uvd_requests WHERE kind = ?`
	rows, err := a.db.QueryContext(ctx, query, kind.String())
	if err != nil {
		return nil, fmt.Errorf("query requests %s: %w", kind, err)
	}
	defer rows.Close()

	out := make(map[domain.Key]*domain.Request)
	for rows.Next() {
		var (
			key  int64
			data string
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		rec, err := decode(kind, domain.Key(key), []byte(data))
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

// Close закрывает базу.
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

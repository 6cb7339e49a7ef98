package repo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

const defaultRedisPrefix = "uvd:requests"

// RedisAdapter — хранилище заявок в Redis: один hash на тип,
// поле — ключ заявки, значение — JSON записи.
type RedisAdapter struct {
	client redis.UniversalClient
	prefix string
}

// RedisConfig — параметры подключения.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // префикс ключей (default: uvd:requests)
}

// NewRedisAdapter подключается к Redis и проверяет соединение.
func NewRedisAdapter(ctx context.Context, cfg RedisConfig) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisAdapterFromClient(client, cfg.Prefix), nil
}

// NewRedisAdapterFromClient создаёт адаптер поверх готового клиента.
func NewRedisAdapterFromClient(client redis.UniversalClient, prefix string) *RedisAdapter {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisAdapter{client: client, prefix: prefix}
}

// hashKey возвращает ключ hash для типа.
func (a *RedisAdapter) hashKey(kind domain.Kind) string {
	return a.prefix + ":" + kind.String()
}

// Save создаёт или заменяет запись.
func (a *RedisAdapter) Save(ctx context.Context, kind domain.Kind, key domain.Key, rec *domain.Request) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}
	field := strconv.FormatInt(int64(key), 10)
	if err := a.client.HSet(ctx, a.hashKey(kind), field, data).Err(); err != nil {
		return fmt.Errorf("hset request %s/%d: %w", kind, key, err)
	}
	return nil
}

// Delete удаляет запись.
func (a *RedisAdapter) Delete(ctx context.Context, kind domain.Kind, key domain.Key) error {
	field := strconv.FormatInt(int64(key), 10)
	if err := a.client.HDel(ctx, a.hashKey(kind), field).Err(); err != nil {
		return fmt.Errorf("hdel request %s/%d: %w", kind, key, err)
	}
	return nil
}

// LoadAll возвращает все записи типа.
func (a *RedisAdapter) LoadAll(ctx context.Context, kind domain.Kind) (map[domain.Key]*domain.Request, error) {
	fields, err := a.client.HGetAll(ctx, a.hashKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall requests %s: %w", kind, err)
	}

	out := make(map[domain.Key]*domain.Request, len(fields))
	for field, data := range fields {
		k, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s: bad key", ErrCorruptRecord, kind, field)
		}
		rec, err := decode(kind, domain.Key(k), []byte(data))
		if err != nil {
			return nil, err
		}
		out[rec.Key] = rec
	}
	return out, nil
}

// Close закрывает клиент.
func (a *RedisAdapter) Close() error {
	return a.client.Close()
}

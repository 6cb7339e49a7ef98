package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

// Adapter — долговременное хранилище заявок.
//
// Адаптер не обязан быть потокобезопасным: все записи идут через
// единственного потребителя очереди задач.
type Adapter interface {
	// Save создаёт или заменяет запись.
	Save(ctx context.Context, kind domain.Kind, key domain.Key, rec *domain.Request) error

	// Delete удаляет запись. Удаление отсутствующей записи не ошибка.
	Delete(ctx context.Context, kind domain.Kind, key domain.Key) error

	// LoadAll возвращает все записи типа.
	LoadAll(ctx context.Context, kind domain.Kind) (map[domain.Key]*domain.Request, error)

	// Close освобождает ресурсы.
	Close() error
}

// encode сериализует запись.
func encode(rec *domain.Request) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal request %d: %w", rec.Key, err)
	}
	return data, nil
}

// decode десериализует запись и сверяет её с ключом хранилища.
// Целые в Payload возвращаются как int64 без потери точности.
func decode(kind domain.Kind, key domain.Key, data []byte) (*domain.Request, error) {
	var rec domain.Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %s/%d: %v", ErrCorruptRecord, kind, key, err)
	}
	rec.Payload = domain.NormalizePayload(rec.Payload)
	// Ключ и тип — из хранилища, они авторитетнее содержимого
	rec.Key = key
	rec.Kind = kind
	return &rec, nil
}

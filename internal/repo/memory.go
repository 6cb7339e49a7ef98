package repo

import (
	"context"
	"sync"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

type memoryKey struct {
	kind domain.Kind
	key  domain.Key
}

// MemoryAdapter — хранилище в памяти процесса.
//
// Записи хранятся сериализованными, поэтому LoadAll возвращает то же,
// что вернул бы настоящий адаптер (числа payload — float64).
type MemoryAdapter struct {
	mu      sync.Mutex
	records map[memoryKey][]byte
}

// NewMemoryAdapter создаёт пустое хранилище.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{records: make(map[memoryKey][]byte)}
}

// Save создаёт или заменяет запись.
func (a *MemoryAdapter) Save(_ context.Context, kind domain.Kind, key domain.Key, rec *domain.Request) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[memoryKey{kind, key}] = data
	return nil
}

// Delete удаляет запись.
func (a *MemoryAdapter) Delete(_ context.Context, kind domain.Kind, key domain.Key) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.records, memoryKey{kind, key})
	return nil
}

// LoadAll возвращает все записи типа.
func (a *MemoryAdapter) LoadAll(_ context.Context, kind domain.Kind) (map[domain.Key]*domain.Request, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[domain.Key]*domain.Request)
	for k, data := range a.records {
		if k.kind != kind {
			continue
		}
		rec, err := decode(kind, k.key, data)
		if err != nil {
			return nil, err
		}
		out[k.key] = rec
	}
	return out, nil
}

// Len возвращает общее число записей.
func (a *MemoryAdapter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Close ничего не делает.
func (a *MemoryAdapter) Close() error {
	return nil
}

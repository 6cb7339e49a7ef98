package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/repo"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/taskqueue"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/telemetry"
)

// Store — зеркало заявок в памяти с записью через очередь.
type Store struct {
	adapter repo.Adapter
	queue   *taskqueue.Queue
	logger  *slog.Logger

	mu     sync.RWMutex
	mirror map[domain.Kind]map[domain.Key]*domain.Request
}

// Config — конфигурация Store.
type Config struct {
	Adapter repo.Adapter
	Queue   *taskqueue.Queue

	// Logger
	Logger *slog.Logger
}

// New создаёт пустое хранилище. Данные загружаются через Load.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		adapter: cfg.Adapter,
		queue:   cfg.Queue,
		logger:  logger.With("component", "store"),
		mirror:  make(map[domain.Kind]map[domain.Key]*domain.Request),
	}
}

// Load читает записи указанных типов из адаптера и заменяет ими зеркало.
// Без аргументов загружаются все типы.
func (s *Store) Load(ctx context.Context, kinds ...domain.Kind) error {
	if len(kinds) == 0 {
		kinds = domain.Kinds()
	}

	for _, kind := range kinds {
		res, err := s.queue.Do(ctx, "load_all:"+kind.String(), func(ctx context.Context) (any, error) {
			return s.adapter.LoadAll(ctx, kind)
		})
		if err != nil {
			return fmt.Errorf("load %s: %w", kind, err)
		}
		records := res.(map[domain.Key]*domain.Request)

		s.mu.Lock()
		s.mirror[kind] = records
		s.mu.Unlock()

		s.logger.Info("requests loaded", "kind", kind, "count", len(records))
	}
	return nil
}

// Get возвращает копию заявки.
func (s *Store) Get(kind domain.Kind, key domain.Key) (*domain.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.mirror[kind][key]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Contains сообщает, ожидает ли заявка решения.
func (s *Store) Contains(kind domain.Kind, key domain.Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.mirror[kind][key]
	return ok
}

// List возвращает копии всех заявок типа, отсортированные по ключу.
func (s *Store) List(kind domain.Kind) []*domain.Request {
	s.mu.RLock()
	out := make([]*domain.Request, 0, len(s.mirror[kind]))
	for _, rec := range s.mirror[kind] {
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *domain.Request) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Len возвращает число ожидающих заявок типа.
func (s *Store) Len(kind domain.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mirror[kind])
}

// Create добавляет новую заявку и ждёт её записи.
// При ошибке записи заявка из зеркала убирается.
func (s *Store) Create(ctx context.Context, rec *domain.Request) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	snapshot := rec.Clone()

	s.mu.Lock()
	if _, ok := s.mirror[rec.Kind][rec.Key]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%d", ErrAlreadyExists, rec.Kind, rec.Key)
	}
	s.setLocked(snapshot)
	s.mu.Unlock()

	if err := s.save(ctx, snapshot); err != nil {
		s.mu.Lock()
		if cur := s.mirror[rec.Kind][rec.Key]; cur == snapshot {
			delete(s.mirror[rec.Kind], rec.Key)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Put заменяет заявку в зеркале и ждёт записи в адаптер.
// Зеркало обновляется сразу и при ошибке записи не откатывается.
func (s *Store) Put(ctx context.Context, rec *domain.Request) error {
	snapshot := rec.Clone()

	s.mu.Lock()
	s.setLocked(snapshot)
	s.mu.Unlock()

	return s.save(ctx, snapshot)
}

// PutAsync заменяет заявку в зеркале и ставит запись в очередь без ожидания.
// Возвращает false, если задача отброшена.
func (s *Store) PutAsync(rec *domain.Request) bool {
	snapshot := rec.Clone()

	s.mu.Lock()
	s.setLocked(snapshot)
	s.mu.Unlock()

	return s.queue.SubmitAndForget(opName("save", snapshot.Kind, snapshot.Key), func(ctx context.Context) (any, error) {
		return nil, s.adapter.Save(ctx, snapshot.Kind, snapshot.Key, snapshot)
	})
}

// Delete убирает заявку из зеркала и ждёт удаления из адаптера.
func (s *Store) Delete(ctx context.Context, kind domain.Kind, key domain.Key) error {
	s.mu.Lock()
	delete(s.mirror[kind], key)
	s.mu.Unlock()

	_, err := s.queue.Do(ctx, opName("delete", kind, key), func(ctx context.Context) (any, error) {
		return nil, s.adapter.Delete(ctx, kind, key)
	})
	if err != nil {
		return s.persistenceError("delete", kind, key, err)
	}
	return nil
}

// DeleteAsync убирает заявку из зеркала и ставит удаление в очередь.
func (s *Store) DeleteAsync(kind domain.Kind, key domain.Key) bool {
	s.mu.Lock()
	delete(s.mirror[kind], key)
	s.mu.Unlock()

	return s.queue.SubmitAndForget(opName("delete", kind, key), func(ctx context.Context) (any, error) {
		return nil, s.adapter.Delete(ctx, kind, key)
	})
}

// setLocked кладёт запись в зеркало. Вызывается под s.mu.
func (s *Store) setLocked(rec *domain.Request) {
	byKey, ok := s.mirror[rec.Kind]
	if !ok {
		byKey = make(map[domain.Key]*domain.Request)
		s.mirror[rec.Kind] = byKey
	}
	byKey[rec.Key] = rec
}

// save ставит запись в очередь и ждёт результат.
func (s *Store) save(ctx context.Context, rec *domain.Request) error {
	_, err := s.queue.Do(ctx, opName("save", rec.Kind, rec.Key), func(ctx context.Context) (any, error) {
		return nil, s.adapter.Save(ctx, rec.Kind, rec.Key, rec)
	})
	if err != nil {
		return s.persistenceError("save", rec.Kind, rec.Key, err)
	}
	return nil
}

func (s *Store) persistenceError(op string, kind domain.Kind, key domain.Key, err error) error {
	telemetry.WithRequestKey(s.logger, int64(key)).Error("persistence failed",
		"operation", op,
		"kind", kind,
		"error", err,
	)
	return fmt.Errorf("%w: %s %s/%d: %w", ErrPersistence, op, kind, key, err)
}

func opName(op string, kind domain.Kind, key domain.Key) string {
	return fmt.Sprintf("%s:%s:%d", op, kind, key)
}

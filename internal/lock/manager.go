package lock

import (
	"fmt"
	"sync"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/telemetry"
)

// slot — замок одной заявки. Отсутствие slot в реестре означает "свободен".
type slot struct {
	held bool
}

// Manager — реестр замков (key → slot).
//
// Не персистентен: после рестарта все замки свободны.
type Manager struct {
	mu    sync.Mutex
	slots map[domain.Key]*slot
}

// NewManager создаёт пустой реестр.
func NewManager() *Manager {
	return &Manager{slots: make(map[domain.Key]*slot)}
}

// Guard — захваченный замок. Освобождается через Release (обычно в defer).
type Guard struct {
	m    *Manager
	key  domain.Key
	slot *slot
	once sync.Once
}

// Acquire пытается захватить замок заявки без ожидания.
func (m *Manager) Acquire(key domain.Key) (*Guard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok {
		s = &slot{}
		m.slots[key] = s
	}
	if s.held {
		telemetry.LockContention.Inc()
		return nil, fmt.Errorf("%w: %d", ErrAlreadyInProgress, key)
	}
	s.held = true

	return &Guard{m: m, key: key, slot: s}, nil
}

// Key возвращает ключ захваченной заявки.
func (g *Guard) Key() domain.Key {
	return g.key
}

// Release освобождает замок. Повторный вызов ничего не делает.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.m.release(g.key, g.slot)
	})
}

// release освобождает slot и удаляет его из реестра.
//
// Запись удаляется только если в реестре лежит тот же самый slot
// и он свободен: иначе можно выбросить замок, созданный новым
// захватом между освобождением и очисткой.
func (m *Manager) release(key domain.Key, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.held = false
	if cur, ok := m.slots[key]; ok && cur == s && !cur.held {
		delete(m.slots, key)
	}
}

// IsHeld проверяет, занят ли замок заявки.
func (m *Manager) IsHeld(key domain.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	return ok && s.held
}

// Len возвращает количество записей в реестре.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// With выполняет fn под замком заявки.
func (m *Manager) With(key domain.Key, fn func() error) error {
	g, err := m.Acquire(key)
	if err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

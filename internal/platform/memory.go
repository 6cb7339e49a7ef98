package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/caller"
)

// Call — запись о вызове Memory.
type Call struct {
	Op        string
	GuildID   int64
	UserID    int64
	RoleID    int64
	ChannelID int64
	MessageID int64
	Content   string
}

type memberKey struct {
	guild, user int64
}

type messageKey struct {
	channel, message int64
}

// Memory — реализация API в памяти.
//
// Роли и сообщения хранятся в map, каждый вызов пишется в журнал Calls.
// Через FailNext можно поставить в очередь ошибки для конкретной операции.
type Memory struct {
	mu       sync.Mutex
	roles    map[memberKey]map[int64]bool
	messages map[messageKey]string
	nextID   int64
	calls    []Call
	failures map[string][]error
}

// NewMemory создаёт пустую платформу в памяти.
func NewMemory() *Memory {
	return &Memory{
		roles:    make(map[memberKey]map[int64]bool),
		messages: make(map[messageKey]string),
		nextID:   1_000_000,
		failures: make(map[string][]error),
	}
}

// FailNext ставит err результатом следующего вызова op.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// AddMessage регистрирует существующее сообщение.
func (m *Memory) AddMessage(channelID, messageID int64, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[messageKey{channelID, messageID}] = content
}

// HasRole сообщает, есть ли у участника роль.
func (m *Memory) HasRole(guildID, userID, roleID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[memberKey{guildID, userID}][roleID]
}

// Calls возвращает копию журнала вызовов.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsOf возвращает вызовы конкретной операции.
func (m *Memory) CallsOf(op string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// record пишет вызов в журнал и возвращает поставленную ошибку, если есть.
// Вызывается под m.mu.
func (m *Memory) record(c Call) error {
	m.calls = append(m.calls, c)
	if queue := m.failures[c.Op]; len(queue) > 0 {
		m.failures[c.Op] = queue[1:]
		return queue[0]
	}
	return nil
}

// GrantRole выдаёт роль.
func (m *Memory) GrantRole(_ context.Context, guildID, userID, roleID int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "grant_role", GuildID: guildID, UserID: userID, RoleID: roleID}); err != nil {
		return err
	}

	k := memberKey{guildID, userID}
	if m.roles[k] == nil {
		m.roles[k] = make(map[int64]bool)
	}
	m.roles[k][roleID] = true
	return nil
}

// RevokeRole снимает роль. Снятие отсутствующей роли не ошибка.
func (m *Memory) RevokeRole(_ context.Context, guildID, userID, roleID int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "revoke_role", GuildID: guildID, UserID: userID, RoleID: roleID}); err != nil {
		return err
	}
	delete(m.roles[memberKey{guildID, userID}], roleID)
	return nil
}

// SendMessage отправляет сообщение.
func (m *Memory) SendMessage(_ context.Context, channelID int64, content string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "send_message", ChannelID: channelID, Content: content}); err != nil {
		return 0, err
	}
	m.nextID++
	m.messages[messageKey{channelID, m.nextID}] = content
	return m.nextID, nil
}

// EditMessage редактирует сообщение.
func (m *Memory) EditMessage(_ context.Context, channelID, messageID int64, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "edit_message", ChannelID: channelID, MessageID: messageID, Content: content}); err != nil {
		return err
	}
	k := messageKey{channelID, messageID}
	if _, ok := m.messages[k]; !ok {
		return fmt.Errorf("%w: message %d", caller.ErrNotFound, messageID)
	}
	m.messages[k] = content
	return nil
}

// DeleteMessage удаляет сообщение.
func (m *Memory) DeleteMessage(_ context.Context, channelID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "delete_message", ChannelID: channelID, MessageID: messageID}); err != nil {
		return err
	}
	k := messageKey{channelID, messageID}
	if _, ok := m.messages[k]; !ok {
		return fmt.Errorf("%w: message %d", caller.ErrNotFound, messageID)
	}
	delete(m.messages, k)
	return nil
}

// Exists проверяет наличие сообщения.
func (m *Memory) Exists(_ context.Context, channelID, messageID int64) (Presence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(Call{Op: "fetch_message", ChannelID: channelID, MessageID: messageID}); err != nil {
		return PresenceUnknown, err
	}
	if _, ok := m.messages[messageKey{channelID, messageID}]; ok {
		return PresenceFound, nil
	}
	return PresenceNotFound, nil
}

package platform

import "context"

// API — операции записи и поиска на платформе, нужные координатору.
type API interface {
	// GrantRole выдаёт роль участнику.
	GrantRole(ctx context.Context, guildID, userID, roleID int64, reason string) error

	// RevokeRole снимает роль с участника.
	RevokeRole(ctx context.Context, guildID, userID, roleID int64, reason string) error

	// SendMessage отправляет сообщение в канал и возвращает его id.
	SendMessage(ctx context.Context, channelID int64, content string) (int64, error)

	// EditMessage заменяет текст сообщения.
	EditMessage(ctx context.Context, channelID, messageID int64, content string) error

	// DeleteMessage удаляет сообщение.
	DeleteMessage(ctx context.Context, channelID, messageID int64) error

	// Exists проверяет, существует ли ещё сообщение.
	Exists(ctx context.Context, channelID, messageID int64) (Presence, error)
}

// Presence — результат поиска артефакта заявки.
type Presence int

const (
	// PresenceUnknown — ответ получить не удалось (ошибка, лимиты).
	PresenceUnknown Presence = iota
	// PresenceFound — сообщение существует.
	PresenceFound
	// PresenceNotFound — сообщение удалено.
	PresenceNotFound
)

// String возвращает строковое представление.
func (p Presence) String() string {
	switch p {
	case PresenceFound:
		return "found"
	case PresenceNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

package platform

import (
	"context"
	"errors"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/caller"
)

// Retrying — API, каждый вызов которого проходит через caller.Caller.
type Retrying struct {
	api    API
	caller *caller.Caller
}

// WithRetry оборачивает api повторами.
func WithRetry(api API, c *caller.Caller) *Retrying {
	return &Retrying{api: api, caller: c}
}

// GrantRole выдаёт роль с повторами.
func (r *Retrying) GrantRole(ctx context.Context, guildID, userID, roleID int64, reason string) error {
	return r.caller.Call(ctx, "grant_role", func(ctx context.Context) error {
		return r.api.GrantRole(ctx, guildID, userID, roleID, reason)
	})
}

// RevokeRole снимает роль с повторами.
func (r *Retrying) RevokeRole(ctx context.Context, guildID, userID, roleID int64, reason string) error {
	return r.caller.Call(ctx, "revoke_role", func(ctx context.Context) error {
		return r.api.RevokeRole(ctx, guildID, userID, roleID, reason)
	})
}

// SendMessage отправляет сообщение с повторами.
func (r *Retrying) SendMessage(ctx context.Context, channelID int64, content string) (int64, error) {
	return caller.Do(ctx, r.caller, "send_message", func(ctx context.Context) (int64, error) {
		return r.api.SendMessage(ctx, channelID, content)
	})
}

// EditMessage редактирует сообщение с повторами.
func (r *Retrying) EditMessage(ctx context.Context, channelID, messageID int64, content string) error {
	return r.caller.Call(ctx, "edit_message", func(ctx context.Context) error {
		return r.api.EditMessage(ctx, channelID, messageID, content)
	})
}

// DeleteMessage удаляет сообщение с повторами.
func (r *Retrying) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	return r.caller.Call(ctx, "delete_message", func(ctx context.Context) error {
		return r.api.DeleteMessage(ctx, channelID, messageID)
	})
}

// Exists ищет сообщение с повторами. Исчерпание повторов даёт PresenceUnknown.
func (r *Retrying) Exists(ctx context.Context, channelID, messageID int64) (Presence, error) {
	p, err := caller.Do(ctx, r.caller, "fetch_message", func(ctx context.Context) (Presence, error) {
		p, err := r.api.Exists(ctx, channelID, messageID)
		if err != nil {
			return PresenceUnknown, err
		}
		return p, nil
	})
	if err != nil {
		if errors.Is(err, caller.ErrNotFound) {
			return PresenceNotFound, nil
		}
		return PresenceUnknown, err
	}
	return p, nil
}

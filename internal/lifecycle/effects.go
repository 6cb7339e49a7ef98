package lifecycle

import (
	"context"
	"fmt"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
)

// Ключи payload, общие для всех типов.
const (
	payloadUserID        = "user_id"
	payloadNotifyChannel = "notify_channel"
)

// subject возвращает ID сотрудника, к которому относится заявка.
func subject(rec *domain.Request) (int64, error) {
	user := rec.PayloadInt64(payloadUserID)
	if user == 0 {
		return 0, fmt.Errorf("%w: %s", ErrMissingPayload, payloadUserID)
	}
	return user, nil
}

// grantRoles выдаёт все роли из payload[key]. Пустой список — не ошибка.
func grantRoles(ctx context.Context, api platform.API, rec *domain.Request, key, reason string) error {
	roles := rec.PayloadInt64s(key)
	if len(roles) == 0 {
		return nil
	}
	user, err := subject(rec)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if err := api.GrantRole(ctx, rec.GuildID, user, role, reason); err != nil {
			return fmt.Errorf("grant role %d: %w", role, err)
		}
	}
	return nil
}

// revokeRoles снимает все роли из payload[key].
func revokeRoles(ctx context.Context, api platform.API, rec *domain.Request, key, reason string) error {
	roles := rec.PayloadInt64s(key)
	if len(roles) == 0 {
		return nil
	}
	user, err := subject(rec)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if err := api.RevokeRole(ctx, rec.GuildID, user, role, reason); err != nil {
			return fmt.Errorf("revoke role %d: %w", role, err)
		}
	}
	return nil
}

// notify отправляет сообщение в payload.notify_channel, если он задан.
func notify(ctx context.Context, api platform.API, rec *domain.Request, text string) error {
	channel := rec.PayloadInt64(payloadNotifyChannel)
	if channel == 0 {
		return nil
	}
	if user := rec.PayloadInt64(payloadUserID); user != 0 {
		text = fmt.Sprintf("<@%d> %s", user, text)
	}
	if _, err := api.SendMessage(ctx, channel, text); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// notifyRejected сообщает об отказе.
func notifyRejected(ctx context.Context, api platform.API, rec *domain.Request, tr Transition) error {
	text := fmt.Sprintf("Заявка №%d отклонена.", rec.Key)
	if tr.Action.Reason != "" {
		text += " Причина: " + tr.Action.Reason
	}
	return notify(ctx, api, rec, text)
}

// reasonFor — причина для журнала аудита платформы.
func reasonFor(rec *domain.Request, tr Transition) string {
	return fmt.Sprintf("%s %d: %s by %d", rec.Kind, rec.Key, tr.Action.Type, tr.Action.ActorID)
}

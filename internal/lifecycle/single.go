package lifecycle

import (
	"context"
	"fmt"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
)

// planSingle — общий автомат одноэтапных заявок.
//
//	PENDING --approve--> APPROVED
//	PENDING --reject---> REJECTED
func planSingle(kind domain.Kind, rec *domain.Request, action domain.Action) (Transition, error) {
	tr := Transition{From: domain.PhasePending, Action: action}

	switch action.Type {
	case domain.ActionApprove:
		if !CanApprove(rec) {
			return tr, fmt.Errorf("%w: %s is not pending", ErrIllegalTransition, kind)
		}
		tr.To = domain.PhaseApproved
	case domain.ActionReject:
		if !CanReject(rec) {
			return tr, fmt.Errorf("%w: %s is not pending", ErrIllegalTransition, kind)
		}
		tr.To = domain.PhaseRejected
	default:
		return tr, fmt.Errorf("%w: action %s is not valid for %s", ErrIllegalTransition, action.Type, kind)
	}
	return tr, nil
}

// ApplicationWorkflow — заявка на вступление.
// Одобрение выдаёт роли из payload.roles.
type ApplicationWorkflow struct{}

// Kind возвращает domain.KindApplication.
func (ApplicationWorkflow) Kind() domain.Kind { return domain.KindApplication }

// Plan проверяет действие.
func (w ApplicationWorkflow) Plan(rec *domain.Request, action domain.Action) (Transition, error) {
	return planSingle(w.Kind(), rec, action)
}

// Apply выполняет эффекты.
func (w ApplicationWorkflow) Apply(ctx context.Context, api platform.API, rec *domain.Request, tr Transition) error {
	if tr.To == domain.PhaseRejected {
		return notifyRejected(ctx, api, rec, tr)
	}
	if err := grantRoles(ctx, api, rec, "roles", reasonFor(rec, tr)); err != nil {
		return err
	}
	return notify(ctx, api, rec, fmt.Sprintf("Заявка на вступление №%d одобрена.", rec.Key))
}

// TerminationWorkflow — увольнение.
// Одобрение снимает роли из payload.roles.
type TerminationWorkflow struct{}

// Kind возвращает domain.KindTermination.
func (TerminationWorkflow) Kind() domain.Kind { return domain.KindTermination }

// Plan проверяет действие.
func (w TerminationWorkflow) Plan(rec *domain.Request, action domain.Action) (Transition, error) {
	return planSingle(w.Kind(), rec, action)
}

// Apply выполняет эффекты.
func (w TerminationWorkflow) Apply(ctx context.Context, api platform.API, rec *domain.Request, tr Transition) error {
	if tr.To == domain.PhaseRejected {
		return notifyRejected(ctx, api, rec, tr)
	}
	if err := revokeRoles(ctx, api, rec, "roles", reasonFor(rec, tr)); err != nil {
		return err
	}
	return notify(ctx, api, rec, fmt.Sprintf("Рапорт на увольнение №%d одобрен.", rec.Key))
}

// PromotionWorkflow — повышение.
// Одобрение снимает payload.old_roles и выдаёт payload.new_roles.
type PromotionWorkflow struct{}

// Kind возвращает domain.KindPromotion.
func (PromotionWorkflow) Kind() domain.Kind { return domain.KindPromotion }

// Plan проверяет действие.
func (w PromotionWorkflow) Plan(rec *domain.Request, action domain.Action) (Transition, error) {
	return planSingle(w.Kind(), rec, action)
}

// Apply выполняет эффекты.
func (w PromotionWorkflow) Apply(ctx context.Context, api platform.API, rec *domain.Request, tr Transition) error {
	if tr.To == domain.PhaseRejected {
		return notifyRejected(ctx, api, rec, tr)
	}
	reason := reasonFor(rec, tr)
	// Сначала выдаём новое звание: при сбое посередине у сотрудника
	// останутся обе роли, а не ни одной
	if err := grantRoles(ctx, api, rec, "new_roles", reason); err != nil {
		return err
	}
	if err := revokeRoles(ctx, api, rec, "old_roles", reason); err != nil {
		return err
	}
	return notify(ctx, api, rec, fmt.Sprintf("Рапорт на повышение №%d одобрен.", rec.Key))
}

// IssuanceWorkflow — выдача ресурсов.
// Одобрение только уведомляет: сама выдача выполняется людьми.
type IssuanceWorkflow struct{}

// Kind возвращает domain.KindIssuance.
func (IssuanceWorkflow) Kind() domain.Kind { return domain.KindIssuance }

// Plan проверяет действие.
func (w IssuanceWorkflow) Plan(rec *domain.Request, action domain.Action) (Transition, error) {
	return planSingle(w.Kind(), rec, action)
}

// Apply выполняет эффекты.
func (w IssuanceWorkflow) Apply(ctx context.Context, api platform.API, rec *domain.Request, tr Transition) error {
	if tr.To == domain.PhaseRejected {
		return notifyRejected(ctx, api, rec, tr)
	}
	item := rec.PayloadString("item")
	if item == "" {
		item = "ресурсов"
	}
	return notify(ctx, api, rec, fmt.Sprintf("Заявка №%d на выдачу %s одобрена.", rec.Key, item))
}

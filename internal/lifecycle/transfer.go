package lifecycle

import (
	"context"
	"fmt"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
)

// TransferWorkflow — перевод между подразделениями с двумя согласующими.
//
//	PENDING_SOURCE --approve_source--> PENDING_TARGET --approve_target--> APPROVED
//	любая, кроме APPROVED --reject--> REJECTED
//
// Заявка с BypassSource создаётся сразу в PENDING_TARGET.
type TransferWorkflow struct{}

// Kind возвращает domain.KindTransfer.
func (TransferWorkflow) Kind() domain.Kind { return domain.KindTransfer }

// Plan проверяет действие и вычисляет новое состояние согласований.
func (TransferWorkflow) Plan(rec *domain.Request, action domain.Action) (Transition, error) {
	tr := Transition{Action: action}

	from, ok := PhaseOf(rec)
	if !ok {
		return tr, fmt.Errorf("%w: %s is not pending", ErrIllegalTransition, domain.KindTransfer)
	}
	tr.From = from

	var gate domain.TransferGate
	if rec.Gate != nil {
		gate = *rec.Gate
	}

	switch action.Type {
	case domain.ActionApproveSource:
		next, err := ApproveSource(gate, action.ActorID)
		if err != nil {
			return tr, err
		}
		tr.Gate = &next
		tr.To = TransferPhase(next)

	case domain.ActionApproveTarget:
		next, err := ApproveTarget(gate, action.ActorID)
		if err != nil {
			return tr, err
		}
		tr.Gate = &next
		tr.To = TransferPhase(next)

	case domain.ActionReject:
		if !CanReject(rec) {
			return tr, fmt.Errorf("%w: reject from %s", ErrIllegalTransition, from)
		}
		tr.To = domain.PhaseRejected

	default:
		return tr, fmt.Errorf("%w: action %s is not valid for %s", ErrIllegalTransition, action.Type, domain.KindTransfer)
	}

	return tr, nil
}

// Apply выполняет эффекты перехода.
//
// approve_source уведомляет принимающее подразделение (payload.target_channel),
// approve_target снимает payload.source_roles и выдаёт payload.target_roles.
func (TransferWorkflow) Apply(ctx context.Context, api platform.API, rec *domain.Request, tr Transition) error {
	switch tr.To {
	case domain.PhaseRejected:
		return notifyRejected(ctx, api, rec, tr)

	case domain.PhasePendingTarget:
		channel := rec.PayloadInt64("target_channel")
		if channel == 0 {
			return nil
		}
		_, err := api.SendMessage(ctx, channel,
			fmt.Sprintf("Рапорт на перевод №%d согласован исходным подразделением и ожидает вашего решения.", rec.Key))
		return err

	case domain.PhaseApproved:
		reason := reasonFor(rec, tr)
		if err := grantRoles(ctx, api, rec, "target_roles", reason); err != nil {
			return err
		}
		if err := revokeRoles(ctx, api, rec, "source_roles", reason); err != nil {
			return err
		}
		return notify(ctx, api, rec, fmt.Sprintf("Рапорт на перевод №%d одобрен.", rec.Key))
	}
	return nil
}

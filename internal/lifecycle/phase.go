package lifecycle

import (
	"fmt"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

// PhaseOf возвращает фазу хранимой записи.
// Для отсутствующей записи возвращает false: заявка завершена,
// и какой именно финал был — по хранилищу не определить.
func PhaseOf(rec *domain.Request) (domain.Phase, bool) {
	if rec == nil {
		return "", false
	}
	if rec.Kind.IsDualApproval() {
		if rec.Gate == nil {
			// Запись без Gate трактуется как свежая
			return domain.PhasePendingSource, true
		}
		return TransferPhase(*rec.Gate), true
	}
	return domain.PhasePending, true
}

// CanApprove сообщает, можно ли одобрить одноэтапную заявку.
func CanApprove(rec *domain.Request) bool {
	return rec != nil
}

// CanReject сообщает, можно ли отклонить заявку.
// Одноэтапная — если запись есть; перевод — в любой фазе, кроме APPROVED.
func CanReject(rec *domain.Request) bool {
	phase, ok := PhaseOf(rec)
	return ok && phase != domain.PhaseApproved
}

// TransferPhase вычисляет фазу перевода из состояния согласований.
// При BypassSource первый этап считается пройденным, поэтому
// {source: 0, target: x, bypass: true} — это APPROVED, а не PENDING_TARGET.
func TransferPhase(g domain.TransferGate) domain.Phase {
	sourceDone := g.ApprovedBySource != 0 || g.BypassSource
	switch {
	case sourceDone && g.ApprovedByTarget != 0:
		return domain.PhaseApproved
	case sourceDone:
		return domain.PhasePendingTarget
	default:
		return domain.PhasePendingSource
	}
}

// ApproveSource согласует перевод со стороны исходного подразделения.
// Допустимо только из PENDING_SOURCE.
func ApproveSource(g domain.TransferGate, actorID int64) (domain.TransferGate, error) {
	if actorID == 0 {
		return g, fmt.Errorf("%w: approve_source without actor", ErrIllegalTransition)
	}
	if phase := TransferPhase(g); phase != domain.PhasePendingSource {
		return g, fmt.Errorf("%w: approve_source from %s", ErrIllegalTransition, phase)
	}
	g.ApprovedBySource = actorID
	return g, nil
}

// ApproveTarget согласует перевод со стороны принимающего подразделения.
// Допустимо только из PENDING_TARGET.
func ApproveTarget(g domain.TransferGate, actorID int64) (domain.TransferGate, error) {
	if actorID == 0 {
		return g, fmt.Errorf("%w: approve_target without actor", ErrIllegalTransition)
	}
	if phase := TransferPhase(g); phase != domain.PhasePendingTarget {
		return g, fmt.Errorf("%w: approve_target from %s", ErrIllegalTransition, phase)
	}
	g.ApprovedByTarget = actorID
	return g, nil
}

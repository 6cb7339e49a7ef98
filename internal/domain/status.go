package domain

// Phase — текущая позиция заявки в жизненном цикле.
//
// Одноэтапные заявки:
//
//	PENDING → APPROVED
//	        ↘ REJECTED
//
// Перевод (два согласующих):
//
//	PENDING_SOURCE → PENDING_TARGET → APPROVED
//	(bypass)       ↗
//	любой, кроме APPROVED → REJECTED
type Phase string

const (
	// PhasePending — заявка ожидает решения (одноэтапная).
	PhasePending Phase = "PENDING"

	// PhasePendingSource — ждёт согласования исходного подразделения.
	PhasePendingSource Phase = "PENDING_SOURCE"

	// PhasePendingTarget — ждёт согласования принимающего подразделения.
	PhasePendingTarget Phase = "PENDING_TARGET"

	// PhaseApproved — одобрена.
	PhaseApproved Phase = "APPROVED"

	// PhaseRejected — отклонена.
	PhaseRejected Phase = "REJECTED"
)

// IsTerminal возвращает true, если фаза финальная (запись удаляется).
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseApproved, PhaseRejected:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление Phase.
func (p Phase) String() string {
	return string(p)
}

// ActionType — действие пользователя над заявкой.
type ActionType string

const (
	// ActionApprove — одобрить (одноэтапные заявки).
	ActionApprove ActionType = "approve"

	// ActionReject — отклонить (любые заявки).
	ActionReject ActionType = "reject"

	// ActionApproveSource — согласовать со стороны исходного подразделения.
	ActionApproveSource ActionType = "approve_source"

	// ActionApproveTarget — согласовать со стороны принимающего подразделения.
	ActionApproveTarget ActionType = "approve_target"
)

// ParseActionType парсит строку в ActionType.
func ParseActionType(s string) (ActionType, bool) {
	switch ActionType(s) {
	case ActionApprove, ActionReject, ActionApproveSource, ActionApproveTarget:
		return ActionType(s), true
	default:
		return "", false
	}
}

// Action — действие с указанием исполнителя.
type Action struct {
	// Type — тип действия.
	Type ActionType `json:"type"`

	// ActorID — ID пользователя, нажавшего кнопку.
	ActorID int64 `json:"actor_id"`

	// Reason — причина (для отказа).
	Reason string `json:"reason,omitempty"`
}

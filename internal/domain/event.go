package domain

import "time"

// EventType — тип события о заявке.
type EventType string

// Типы событий.
const (
	// EventCreated — заявка зарегистрирована.
	EventCreated EventType = "request.created"

	// EventStageApproved — пройден промежуточный этап (перевод: исходное подразделение).
	EventStageApproved EventType = "request.stage_approved"

	// EventApproved — заявка одобрена.
	EventApproved EventType = "request.approved"

	// EventRejected — заявка отклонена.
	EventRejected EventType = "request.rejected"

	// EventPruned — заявка удалена при сверке.
	EventPruned EventType = "request.pruned"
)

// EventForPhase возвращает тип события перехода в фазу to.
func EventForPhase(to Phase) EventType {
	switch to {
	case PhaseApproved:
		return EventApproved
	case PhaseRejected:
		return EventRejected
	default:
		return EventStageApproved
	}
}

// Event — событие о заявке для внешних подписчиков (аудит).
//
// Хранилище не различает APPROVED и REJECTED после удаления записи,
// поэтому финал фиксируется только здесь.
type Event struct {
	Type       EventType `json:"type"`
	Kind       Kind      `json:"kind"`
	Key        Key       `json:"key"`
	From       Phase     `json:"from,omitempty"`
	To         Phase     `json:"to,omitempty"`
	ActorID    int64     `json:"actor_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeInteractionAction MessageType = "interaction.action"
	MessageTypeInteractionResult MessageType = "interaction.result"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка. Хранится сырой, чтобы 64-битные ID
	// не проходили через float64.
	Payload json.RawMessage `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт конверт с сериализованным payload.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ParsePayload разбирает payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("%w: unmarshal %s payload: %v", ErrBadMessage, msg.Type, err)
	}
	return result, nil
}

// InteractionAction — нажатие кнопки на сообщении заявки.
// ID передаются строками, как принято у платформы.
type InteractionAction struct {
	// InteractionID — идентификатор нажатия для корреляции ответа.
	InteractionID string `json:"interaction_id"`

	Kind    string `json:"kind"`
	Key     int64  `json:"key,string"`
	Action  string `json:"action"`
	ActorID int64  `json:"actor_id,string"`
	Reason  string `json:"reason,omitempty"`
}

// ResultStatus — исход обработки нажатия.
type ResultStatus string

// Исходы.
const (
	// ResultApplied — действие выполнено.
	ResultApplied ResultStatus = "applied"

	// ResultInProgress — по заявке уже идёт действие.
	ResultInProgress ResultStatus = "in_progress"

	// ResultIllegal — действие недопустимо (заявка уже решена или не тот этап).
	ResultIllegal ResultStatus = "illegal"

	// ResultFailed — эффекты на платформе не выполнены.
	ResultFailed ResultStatus = "failed"

	// ResultUnsaved — эффекты выполнены, но состояние не сохранено.
	ResultUnsaved ResultStatus = "unsaved"

	// ResultInvalid — нажатие не разобрано (неизвестный тип или действие).
	ResultInvalid ResultStatus = "invalid"
)

// InteractionResult — ответ слою представления.
type InteractionResult struct {
	InteractionID string       `json:"interaction_id"`
	Kind          string       `json:"kind"`
	Key           int64        `json:"key,string"`
	Action        string       `json:"action"`
	Status        ResultStatus `json:"status"`
	Phase         string       `json:"phase,omitempty"`
	Message       string       `json:"message,omitempty"`
}

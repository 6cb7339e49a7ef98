package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"time"
)

// Key — стабильный идентификатор заявки.
// Совпадает с ID сообщения на платформе, к которому привязана заявка.
type Key int64

// Kind — тип заявки.
type Kind string

// Типы заявок.
const (
	// KindApplication — заявка на вступление.
	KindApplication Kind = "application"

	// KindTermination — увольнение.
	KindTermination Kind = "termination"

	// KindPromotion — повышение в звании.
	KindPromotion Kind = "promotion"

	// KindIssuance — выдача ресурсов (снаряжение, транспорт).
	KindIssuance Kind = "issuance"

	// KindTransfer — перевод между подразделениями (два согласующих).
	KindTransfer Kind = "transfer"
)

// Kinds возвращает все известные типы заявок в стабильном порядке.
func Kinds() []Kind {
	return []Kind{KindApplication, KindTermination, KindPromotion, KindIssuance, KindTransfer}
}

// ParseKind парсит строку в Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// IsDualApproval возвращает true для типов с двухэтапным согласованием.
func (k Kind) IsDualApproval() bool {
	return k == KindTransfer
}

// String возвращает строковое представление Kind.
func (k Kind) String() string {
	return string(k)
}

// Request — ожидающая решения заявка.
//
// Phase не хранится: она вычисляется из полей записи и самого факта
// её присутствия в хранилище (см. пакет lifecycle).
// Завершённая заявка (одобрена или отклонена) из хранилища удаляется.
type Request struct {
	// Key — ID сообщения-артефакта на платформе.
	Key Key `json:"key"`

	// Kind — тип заявки.
	Kind Kind `json:"kind"`

	// GuildID — сервер, на котором выполняются эффекты (выдача ролей).
	GuildID int64 `json:"guild_id,omitempty"`

	// ChannelID — канал, в котором лежит сообщение-артефакт.
	// Используется reconciler'ом для проверки существования.
	ChannelID int64 `json:"channel_id,omitempty"`

	// Payload — данные заявки. Схема зависит от Kind и принадлежит
	// слою представления.
	Payload map[string]any `json:"payload,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// Gate — состояние двухэтапного согласования.
	// Заполнено только для KindTransfer.
	Gate *TransferGate `json:"gate,omitempty"`
}

// TransferGate — поля заявки на перевод.
//
// 0 в поле согласующего означает "ещё не согласовано".
type TransferGate struct {
	// ApprovedBySource — кто согласовал со стороны исходного подразделения.
	ApprovedBySource int64 `json:"approved_by_source"`

	// ApprovedByTarget — кто согласовал со стороны принимающего подразделения.
	ApprovedByTarget int64 `json:"approved_by_target"`

	// BypassSource — первый этап пропущен (например, перевод из резерва).
	BypassSource bool `json:"bypass_source"`
}

// Clone возвращает копию заявки.
// Payload копируется поверхностно: вложенные значения общие.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Payload != nil {
		c.Payload = maps.Clone(r.Payload)
	}
	if r.Gate != nil {
		g := *r.Gate
		c.Gate = &g
	}
	return &c
}

// Validate проверяет обязательные поля заявки.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if r.Key == 0 {
		return fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if r.Kind.IsDualApproval() && r.Gate == nil {
		return fmt.Errorf("%w: transfer request without gate", ErrInvalidRequest)
	}
	if !r.Kind.IsDualApproval() && r.Gate != nil {
		return fmt.Errorf("%w: gate is only valid for %s", ErrInvalidRequest, KindTransfer)
	}
	return nil
}

// Age возвращает возраст заявки относительно now.
func (r *Request) Age(now time.Time) time.Duration {
	return now.Sub(r.CreatedAt)
}

// PayloadInt64 извлекает целое из Payload.
// JSON декодирует числа как float64, что теряет точность для ID платформы,
// поэтому ID принимаются и строками.
func (r *Request) PayloadInt64(key string) int64 {
	n, _ := toInt64(r.Payload[key])
	return n
}

// PayloadInt64s извлекает список целых из Payload (например, ID ролей).
func (r *Request) PayloadInt64s(key string) []int64 {
	switch v := r.Payload[key].(type) {
	case []int64:
		return v
	case []any:
		out := make([]int64, 0, len(v))
		for _, item := range v {
			if n, ok := toInt64(item); ok {
				out = append(out, n)
			}
		}
		return out
	default:
		return nil
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// PayloadString извлекает строку из Payload.
func (r *Request) PayloadString(key string) string {
	if s, ok := r.Payload[key].(string); ok {
		return s
	}
	return ""
}

// NormalizePayload приводит числа, разобранные с UseNumber, к Go-типам:
// целые в int64, остальные в float64. Обходит вложенные списки и объекты.
// Так ID платформы (больше 2^53) переживают сохранение и загрузку без округления.
func NormalizePayload(p map[string]any) map[string]any {
	for k, v := range p {
		p[k] = normalizeNumber(v)
	}
	return p
}

func normalizeNumber(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case []any:
		for i := range n {
			n[i] = normalizeNumber(n[i])
		}
		return n
	case map[string]any:
		return NormalizePayload(n)
	default:
		return v
	}
}

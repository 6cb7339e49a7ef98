package caller

import (
	"errors"
	"fmt"
	"time"
)

// Классы ошибок внешних вызовов.
var (
	// ErrPermissionDenied — у бота нет прав на операцию. Не повторяется.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound — объект на платформе не найден. Не повторяется.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited — платформа ответила rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient — временная ошибка (5xx, таймаут, сеть).
	ErrTransient = errors.New("transient failure")

	// ErrUnexpected — неизвестная ошибка. Не повторяется.
	ErrUnexpected = errors.New("unexpected failure")

	// ErrRetryExhausted — все попытки исчерпаны.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// RateLimitError — ответ rate limit с необязательной подсказкой ожидания.
type RateLimitError struct {
	// RetryAfter — сколько ждать по мнению платформы (0 — подсказки нет).
	RetryAfter time.Duration

	// Global — лимит глобальный, а не на конкретный маршрут.
	Global bool
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}

// Unwrap позволяет проверять errors.Is(err, ErrRateLimited).
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// IsPermanent возвращает true для ошибок, которые нельзя повторять.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNotFound)
}

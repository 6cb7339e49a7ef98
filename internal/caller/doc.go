// Package caller оборачивает исходящие вызовы к платформе повторами
// с учётом rate limit.
//
// Классы ошибок:
//   - ErrRateLimited, ErrTransient — повторяются (до MaxAttempts попыток),
//     после исчерпания возвращается ErrRetryExhausted с именем операции
//   - ErrPermissionDenied, ErrNotFound — не повторяются никогда:
//     это нарушение предусловия, а не конкуренция
//   - всё остальное — ErrUnexpected, без повторов
//
// Задержка перед повтором:
//   - есть подсказка платформы (RateLimitError.RetryAfter): hint + jitter
//   - нет подсказки: min(MaxDelay, BaseDelay * 2^(attempt-1)) + jitter
//
// Опционально перед каждой попыткой ожидается локальный rate.Limiter,
// чтобы не упираться в лимиты платформы лишний раз.
package caller

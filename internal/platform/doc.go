// Package platform — клиент внешнего API платформы (Discord-подобный REST).
//
// Client выполняет ровно одну HTTP-попытку и переводит ответ в классы
// ошибок пакета caller:
//   - 429 → *caller.RateLimitError (подсказка из JSON retry_after или Retry-After)
//   - 403 → caller.ErrPermissionDenied
//   - 404 → caller.ErrNotFound
//   - 5xx, таймауты → caller.ErrTransient
//
// Retrying оборачивает любой API повторами через caller.Caller.
// Memory — реализация в памяти для локального запуска и тестов.
package platform

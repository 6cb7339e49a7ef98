// Package cli реализует инструмент командной строки uvd.
//
// # Обзор
//
// CLI — диагностическая утилита поверх HTTP API uvd-coordinator.
// Хранилищем и блокировками владеет только сервис: CLI никогда не открывает
// хранилище напрямую, поэтому не может разойтись с памятью сервиса.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент API: ListPending (GET /api/v1/requests), Sweep (POST /api/v1/sweeps).
// Ошибки сервера возвращаются как *APIError с кодом из ответа.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Notice) — в stderr.
// Это позволяет использовать pipe: uvd pending list --kind transfer --json | jq .
//
// ## Commands
//
//   - pending list --kind K
//   - sweep --kind K [--dry-run]
//
// Команды создаются фабриками (NewPendingCmd, NewSweepCmd), принимающими
// backendFn и outputFn — замыкания для ленивого создания Backend и Output
// после парсинга PersistentFlags.
package cli

// Package api содержит HTTP API координатора.
//
// Структура:
//   - handler.go         — Handler с DI (координатор, logger)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (request id, logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects (request/response)
//   - request_handler.go — обработчики для /requests и /sweeps
//
// API дублирует очередь нажатий синхронным путём: слой представления
// регистрирует заявки и может выполнить действие, получив ответ сразу.
package api

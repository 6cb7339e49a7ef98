// Package lifecycle содержит конечные автоматы заявок.
//
// Фаза заявки не хранится, а вычисляется из записи:
//   - одноэтапные типы (application, termination, promotion, issuance):
//     запись есть — PENDING; записи нет — заявка завершена
//     (APPROVED и REJECTED через хранилище неразличимы)
//   - перевод (transfer): фаза — чистая функция TransferGate
//
// Workflow разделяет переход на две части: Plan (чистая проверка
// допустимости и вычисление нового состояния) и Apply (внешние эффекты
// на платформе). Сохранение результата — забота вызывающего.
package lifecycle

// Package reconciler находит и удаляет заявки, чей артефакт на платформе
// исчез (сообщение удалено вручную), а также заявки старше окна хранения.
//
// Удаление выполняется только по однозначному ответу "не найдено".
// Неизвестный ответ (нет прав, таймаут, rate limit) запись не трогает.
// Заявки, по которым прямо сейчас идёт действие, пропускаются.
package reconciler

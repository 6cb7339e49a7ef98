// Package lock реализует реестр try-lock'ов по ключу заявки.
//
// Повторное нажатие кнопки на заявке, которая уже обрабатывается,
// не ставится в очередь: Acquire сразу возвращает ErrAlreadyInProgress,
// чтобы второй пользователь получил быстрый и явный ответ.
//
// Замок держится на всём протяжении критической секции
// (захват → внешний вызов → сохранение → освобождение).
package lock

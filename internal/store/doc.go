// Package store — хранилище ожидающих заявок: зеркало в памяти плюс
// запись в долговременный адаптер через очередь задач.
//
// Зеркало — источник истины для чтения внутри процесса. Все обращения
// к адаптеру (загрузка, сохранение, удаление) идут через taskqueue,
// поэтому адаптер видит ровно одного писателя.
//
// Поля конкретной заявки меняются только под блокировкой её ключа
// (пакет lock); сама map защищена коротким внутренним RWMutex.
package store

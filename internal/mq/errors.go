package mq

import "errors"

// Ошибки mq.
var (
	// ErrNoChannel — соединение не установлено (идёт переподключение).
	ErrNoChannel = errors.New("no amqp channel available")

	// ErrBadMessage — сообщение не разобрано. Такие сообщения уходят в DLQ
	// без повторной доставки.
	ErrBadMessage = errors.New("bad message")
)

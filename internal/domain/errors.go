package domain

import "errors"

// Ошибки доменной модели.
var (
	// ErrUnknownKind — неизвестный тип заявки.
	ErrUnknownKind = errors.New("unknown request kind")

	// ErrInvalidRequest — заявка не прошла проверку полей.
	ErrInvalidRequest = errors.New("invalid request")
)

package store

import "errors"

// Ошибки хранилища.
var (
	// ErrAlreadyExists — заявка с таким ключом уже ожидает решения.
	ErrAlreadyExists = errors.New("request already exists")

	// ErrPersistence — не удалось записать изменение в адаптер.
	ErrPersistence = errors.New("persistence failed")
)

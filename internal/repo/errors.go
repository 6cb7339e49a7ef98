package repo

import "errors"

// Общие ошибки адаптеров хранения.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")

	// ErrCorruptRecord — сохранённая запись не декодируется.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrUnknownDriver — неизвестный драйвер хранилища.
	ErrUnknownDriver = errors.New("unknown store driver")
)

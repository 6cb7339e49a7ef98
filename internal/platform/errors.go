package platform

import "errors"

// Ошибки клиента платформы.
var (
	// ErrRequest — не удалось сформировать или отправить запрос.
	ErrRequest = errors.New("platform request failed")

	// ErrBadResponse — ответ платформы не разобран.
	ErrBadResponse = errors.New("bad platform response")
)

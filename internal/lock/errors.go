package lock

import "errors"

// ErrAlreadyInProgress — заявка уже обрабатывается другим действием.
var ErrAlreadyInProgress = errors.New("request already in progress")

package coordinator

import (
	"errors"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/lifecycle"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/lock"
)

// Ошибки TryAction.
var (
	// ErrAlreadyInProgress — по заявке уже выполняется действие.
	ErrAlreadyInProgress = lock.ErrAlreadyInProgress

	// ErrIllegalTransition — действие недопустимо в текущей фазе.
	ErrIllegalTransition = lifecycle.ErrIllegalTransition

	// ErrExternalFailure — эффекты на платформе не выполнены.
	ErrExternalFailure = errors.New("external failure")

	// ErrPersistenceFailure — эффекты выполнены, но новое состояние не сохранено.
	ErrPersistenceFailure = errors.New("persistence failure")
)

// ErrSweepsDisabled — сверка выключена: платформа не может подтвердить отсутствие сообщений.
var ErrSweepsDisabled = errors.New("sweeps are disabled: platform lookup unavailable")

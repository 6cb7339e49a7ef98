package lifecycle

import "errors"

// Ошибки автоматов.
var (
	// ErrIllegalTransition — действие недопустимо в текущей фазе.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrNoWorkflow — для типа заявки не зарегистрирован workflow.
	ErrNoWorkflow = errors.New("no workflow for kind")

	// ErrMissingPayload — в payload нет данных, нужных для эффекта.
	ErrMissingPayload = errors.New("missing payload field")
)

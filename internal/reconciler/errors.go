package reconciler

import "errors"

// Ошибки reconciler.
var (
	// ErrInvalidSchedule — расписание не разобрано.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

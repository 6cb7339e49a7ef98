package taskqueue

import "errors"

// Ошибки очереди задач.
var (
	// ErrQueueFull — очередь заполнена, задача не принята.
	ErrQueueFull = errors.New("task queue is full")

	// ErrQueueStopped — очередь остановлена и больше не принимает задачи.
	ErrQueueStopped = errors.New("task queue stopped")

	// ErrTaskPanicked — операция завершилась паникой.
	ErrTaskPanicked = errors.New("task panicked")
)

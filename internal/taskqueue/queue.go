package taskqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/telemetry"
)

// Default configuration values.
const (
	defaultCapacity    = 1024
	defaultPollTimeout = time.Second
	defaultTaskTimeout = 30 * time.Second
)

// Op — блокирующая операция, выполняемая потребителем очереди.
type Op func(ctx context.Context) (any, error)

// task — задача в очереди.
type task struct {
	id         uuid.UUID
	name       string
	op         Op
	future     *Future // nil для fire-and-forget
	enqueuedAt time.Time
}

// Queue — ограниченная FIFO-очередь с одним потребителем.
type Queue struct {
	tasks chan *task

	pollTimeout time.Duration
	taskTimeout time.Duration
	logger      *slog.Logger

	// Lifecycle
	mu      sync.RWMutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config — конфигурация Queue.
type Config struct {
	Capacity    int           // размер буфера (default: 1024)
	PollTimeout time.Duration // как часто потребитель просыпается без задач (default: 1s)
	TaskTimeout time.Duration // таймаут одной задачи (default: 30s)

	// Logger
	Logger *slog.Logger
}

// New создаёт очередь. Потребитель запускается через Start.
func New(cfg Config) *Queue {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	taskTimeout := cfg.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Queue{
		tasks:       make(chan *task, capacity),
		pollTimeout: pollTimeout,
		taskTimeout: taskTimeout,
		logger:      logger.With("component", "taskqueue"),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start запускает потребителя. Повторный вызов ничего не делает.
//
// Отмена ctx останавливает потребителя без выполнения оставшихся задач:
// их Future завершаются с ErrQueueStopped. Для мягкой остановки с
// дочиткой очереди используйте Stop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true

	go q.consume(ctx)
}

// Stop перестаёт принимать задачи, выполняет уже принятые и ждёт
// завершения потребителя (или истечения ctx).
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	started := q.started
	close(q.stopCh)
	q.mu.Unlock()

	if !started {
		q.failPending(ErrQueueStopped)
		return nil
	}

	select {
	case <-q.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain task queue: %w", ctx.Err())
	}
}

// Submit ставит задачу в очередь и возвращает Future с её результатом.
// Если очередь заполнена или остановлена, Future уже завершён с ошибкой.
func (q *Queue) Submit(name string, op Op) *Future {
	f := newFuture()
	t := &task{id: uuid.New(), name: name, op: op, future: f, enqueuedAt: time.Now()}

	if err := q.enqueue(t); err != nil {
		telemetry.TaskQueueTasks.WithLabelValues("rejected").Inc()
		f.resolve(nil, fmt.Errorf("%w: %s", err, name))
	}
	return f
}

// Do — Submit с ожиданием результата.
func (q *Queue) Do(ctx context.Context, name string, op Op) (any, error) {
	return q.Submit(name, op).Wait(ctx)
}

// SubmitAndForget ставит задачу без ожидания результата.
// При переполнении задача отбрасывается; возвращает false, если задача не принята.
func (q *Queue) SubmitAndForget(name string, op Op) bool {
	t := &task{id: uuid.New(), name: name, op: op, enqueuedAt: time.Now()}

	if err := q.enqueue(t); err != nil {
		telemetry.TaskQueueDropped.Inc()
		q.logger.Warn("task dropped",
			"task", name,
			"task_id", t.id,
			"reason", err,
			"capacity", cap(q.tasks),
		)
		return false
	}
	return true
}

// Len возвращает количество задач, ожидающих выполнения.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Cap возвращает ёмкость очереди.
func (q *Queue) Cap() int {
	return cap(q.tasks)
}

// enqueue неблокирующе кладёт задачу в канал.
func (q *Queue) enqueue(t *task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.stopped {
		return ErrQueueStopped
	}

	select {
	case q.tasks <- t:
		telemetry.TaskQueueDepth.Set(float64(len(q.tasks)))
		return nil
	default:
		return ErrQueueFull
	}
}

// consume — цикл единственного потребителя.
func (q *Queue) consume(ctx context.Context) {
	defer close(q.doneCh)

	// Операции записи не должны обрываться сигналом остановки посередине
	runCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(q.pollTimeout)
	defer ticker.Stop()

	q.logger.Debug("task queue consumer started", "capacity", cap(q.tasks))

	for {
		// Отмена важнее оставшихся задач: select выбирает готовые ветки случайно
		if ctx.Err() != nil {
			q.cancel(ctx)
			return
		}

		select {
		case t := <-q.tasks:
			q.run(runCtx, t)

		case <-q.stopCh:
			q.drain(runCtx)
			q.logger.Debug("task queue consumer stopped")
			return

		case <-ctx.Done():
			q.cancel(ctx)
			return

		case <-ticker.C:
			// Пустой тик: даём циклу увидеть stopCh/ctx даже без задач
		}
	}
}

// cancel закрывает очередь для новых задач и завершает ожидающие.
func (q *Queue) cancel(ctx context.Context) {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.failPending(ErrQueueStopped)
	q.logger.Debug("task queue consumer cancelled", "error", ctx.Err())
}

// drain выполняет всё, что уже лежит в очереди.
func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case t := <-q.tasks:
			q.run(ctx, t)
		default:
			return
		}
	}
}

// failPending завершает ожидающие задачи ошибкой, не выполняя их.
func (q *Queue) failPending(err error) {
	for {
		select {
		case t := <-q.tasks:
			if t.future != nil {
				t.future.resolve(nil, fmt.Errorf("%w: %s", err, t.name))
			} else {
				telemetry.TaskQueueDropped.Inc()
				q.logger.Warn("task dropped on shutdown", "task", t.name, "task_id", t.id)
			}
		default:
			telemetry.TaskQueueDepth.Set(0)
			return
		}
	}
}

// run выполняет одну задачу.
func (q *Queue) run(ctx context.Context, t *task) {
	telemetry.TaskQueueDepth.Set(float64(len(q.tasks)))

	ctx, cancel := context.WithTimeout(ctx, q.taskTimeout)
	defer cancel()

	started := time.Now()
	result, err := q.safeCall(ctx, t)

	if err != nil {
		telemetry.TaskQueueTasks.WithLabelValues("error").Inc()
		if t.future == nil {
			// Fire-and-forget: ошибку некому вернуть, только лог
			q.logger.Error("background task failed",
				"task", t.name,
				"task_id", t.id,
				"error", err,
			)
		} else {
			q.logger.Debug("task failed",
				"task", t.name,
				"task_id", t.id,
				"error", err,
			)
		}
	} else {
		telemetry.TaskQueueTasks.WithLabelValues("ok").Inc()
	}

	q.logger.Debug("task executed",
		"task", t.name,
		"task_id", t.id,
		"wait", started.Sub(t.enqueuedAt),
		"duration", time.Since(started),
	)

	if t.future != nil {
		t.future.resolve(result, err)
	}
}

// safeCall вызывает операцию, превращая панику в ошибку.
func (q *Queue) safeCall(ctx context.Context, t *task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrTaskPanicked, t.name, r)
		}
	}()
	return t.op(ctx)
}

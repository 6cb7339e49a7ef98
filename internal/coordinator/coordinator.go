package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/lifecycle"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/lock"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/reconciler"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/repo"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/store"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/taskqueue"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/telemetry"
)

const defaultPublishTimeout = 5 * time.Second

// EventPublisher — получатель событий о заявках.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

// Coordinator — контекст координации заявок.
type Coordinator struct {
	locks      *lock.Manager
	queue      *taskqueue.Queue
	store      *store.Store
	registry   *lifecycle.Registry
	api        platform.API
	reconciler *reconciler.Reconciler
	events     EventPublisher

	runReconciler bool
	sweeps        bool
	now           func() time.Time
	logger        *slog.Logger
}

// Config — конфигурация Coordinator.
type Config struct {
	// Adapter — долговременное хранилище (обязательно).
	Adapter repo.Adapter

	// API — платформа; вызовы должны быть уже обёрнуты повторами (platform.WithRetry).
	API platform.API

	// Registry — автоматы по типам (default: lifecycle.DefaultRegistry).
	Registry *lifecycle.Registry

	// Events — публикация событий аудита (опционально).
	Events EventPublisher

	// Queue
	QueueCapacity int
	TaskTimeout   time.Duration

	// Reconciler
	ReconcileSchedule string
	Retention         time.Duration
	DisableReconciler bool // Sweep доступен, но периодический запуск выключен

	// DisableSweeps — платформа без настоящего поиска сообщений (например, в памяти):
	// любая сверка удалила бы все заявки. Выключает и периодический запуск.
	DisableSweeps bool

	// Now (опционально, для тестов)
	Now func() time.Time

	// Logger
	Logger *slog.Logger
}

// New создаёт Coordinator. Ничего не запускает: см. Start.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Adapter == nil {
		return nil, errors.New("coordinator: adapter is required")
	}
	if cfg.API == nil {
		return nil, errors.New("coordinator: platform api is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = lifecycle.DefaultRegistry()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	queue := taskqueue.New(taskqueue.Config{
		Capacity:    cfg.QueueCapacity,
		TaskTimeout: cfg.TaskTimeout,
		Logger:      logger,
	})

	st := store.New(store.Config{
		Adapter: cfg.Adapter,
		Queue:   queue,
		Logger:  logger,
	})

	locks := lock.NewManager()

	rec, err := reconciler.New(reconciler.Config{
		Store:     st,
		Locks:     locks,
		Lookup:    cfg.API,
		Kinds:     registry.Kinds(),
		Retention: cfg.Retention,
		Schedule:  cfg.ReconcileSchedule,
		Now:       now,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create reconciler: %w", err)
	}

	return &Coordinator{
		locks:         locks,
		queue:         queue,
		store:         st,
		registry:      registry,
		api:           cfg.API,
		reconciler:    rec,
		events:        cfg.Events,
		runReconciler: !cfg.DisableReconciler && !cfg.DisableSweeps,
		sweeps:        !cfg.DisableSweeps,
		now:           now,
		logger:        logger.With("component", "coordinator"),
	}, nil
}

// Start запускает очередь, загружает заявки и запускает reconciler.
//
// Очередь не привязана к отмене ctx: её останавливает только Stop,
// чтобы принятые записи были дочитаны.
func (c *Coordinator) Start(ctx context.Context) error {
	c.queue.Start(context.WithoutCancel(ctx))

	if err := c.store.Load(ctx, c.registry.Kinds()...); err != nil {
		return fmt.Errorf("load requests: %w", err)
	}

	if c.runReconciler {
		c.reconciler.Start(ctx)
	}

	c.logger.Info("coordinator started")
	return nil
}

// Stop останавливает reconciler и дочитывает очередь задач.
func (c *Coordinator) Stop(ctx context.Context) error {
	if c.runReconciler {
		c.reconciler.Stop()
	}

	if err := c.queue.Stop(ctx); err != nil {
		return err
	}

	c.logger.Info("coordinator stopped")
	return nil
}

// TryAction выполняет действие над заявкой и возвращает фазу после него.
//
// Ошибки:
//   - ErrAlreadyInProgress — по ключу уже идёт действие, повтор не выполняется
//   - ErrIllegalTransition — действие недопустимо (в т.ч. заявка уже завершена)
//   - ErrExternalFailure — эффекты не выполнены, состояние не изменено
//   - ErrPersistenceFailure — эффекты выполнены, запись не сохранена;
//     возвращается новая фаза
func (c *Coordinator) TryAction(ctx context.Context, kind domain.Kind, key domain.Key, action domain.Action) (domain.Phase, error) {
	logger := telemetry.WithRequestKey(telemetry.WithKind(c.logger, kind.String()), int64(key)).
		With("action", action.Type, "actor_id", action.ActorID)

	wf, err := c.registry.Get(kind)
	if err != nil {
		c.countAction(kind, action, "invalid")
		return "", err
	}

	guard, err := c.locks.Acquire(key)
	if err != nil {
		c.countAction(kind, action, "busy")
		logger.Info("action rejected: already in progress")
		return "", err
	}
	defer guard.Release()

	rec, _ := c.store.Get(kind, key)

	tr, err := wf.Plan(rec, action)
	if err != nil {
		c.countAction(kind, action, "illegal")
		logger.Info("action rejected", "reason", err)
		phase, _ := lifecycle.PhaseOf(rec)
		return phase, err
	}

	if err := wf.Apply(ctx, c.api, rec, tr); err != nil {
		c.countAction(kind, action, "external_failure")
		logger.Error("effects failed", "from", tr.From, "to", tr.To, "error", err)
		return tr.From, fmt.Errorf("%w: %s %s/%d: %w", ErrExternalFailure, action.Type, kind, key, err)
	}

	// Эффекты применены: сохранение дожидаемся даже при отмене ctx,
	// блокировка держится до конца записи
	persistCtx := context.WithoutCancel(ctx)
	if err := c.persist(persistCtx, rec, tr); err != nil {
		c.countAction(kind, action, "persistence_failure")
		telemetry.Inconsistencies.Inc()
		logger.Error("effects applied but state not persisted",
			"from", tr.From,
			"to", tr.To,
			"error", err,
		)
		return tr.To, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	c.countAction(kind, action, "ok")
	logger.Info("action applied", "from", tr.From, "to", tr.To)

	c.publish(persistCtx, domain.Event{
		Type:       domain.EventForPhase(tr.To),
		Kind:       kind,
		Key:        key,
		From:       tr.From,
		To:         tr.To,
		ActorID:    action.ActorID,
		Reason:     action.Reason,
		OccurredAt: c.now().UTC(),
	})

	return tr.To, nil
}

// persist сохраняет результат перехода.
func (c *Coordinator) persist(ctx context.Context, rec *domain.Request, tr lifecycle.Transition) error {
	if tr.Terminal() {
		return c.store.Delete(ctx, rec.Kind, rec.Key)
	}
	next := rec.Clone()
	next.Gate = tr.Gate
	return c.store.Put(ctx, next)
}

// Register регистрирует новую заявку в фазе ожидания.
func (c *Coordinator) Register(ctx context.Context, req *domain.Request) (domain.Phase, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if _, err := c.registry.Get(req.Kind); err != nil {
		return "", err
	}

	rec := req.Clone()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = c.now().UTC()
	}

	guard, err := c.locks.Acquire(rec.Key)
	if err != nil {
		return "", err
	}
	defer guard.Release()

	if err := c.store.Create(ctx, rec); err != nil {
		return "", err
	}

	phase, _ := lifecycle.PhaseOf(rec)
	telemetry.WithRequestKey(c.logger, int64(rec.Key)).Info("request registered",
		"kind", rec.Kind,
		"phase", phase,
	)

	c.publish(context.WithoutCancel(ctx), domain.Event{
		Type:       domain.EventCreated,
		Kind:       rec.Kind,
		Key:        rec.Key,
		To:         phase,
		OccurredAt: c.now().UTC(),
	})
	return phase, nil
}

// Phase возвращает текущую фазу заявки; false — заявка завершена или неизвестна.
func (c *Coordinator) Phase(kind domain.Kind, key domain.Key) (domain.Phase, bool) {
	rec, ok := c.store.Get(kind, key)
	if !ok {
		return "", false
	}
	return lifecycle.PhaseOf(rec)
}

// Pending возвращает ожидающие заявки типа.
func (c *Coordinator) Pending(kind domain.Kind) []*domain.Request {
	return c.store.List(kind)
}

// Sweep запускает сверку одного типа вне расписания.
func (c *Coordinator) Sweep(ctx context.Context, kind domain.Kind, dryRun bool) (reconciler.Result, error) {
	if !c.sweeps {
		return reconciler.Result{Kind: kind, DryRun: dryRun}, ErrSweepsDisabled
	}
	res, err := c.reconciler.SweepDetailed(ctx, kind, dryRun)
	if !dryRun {
		for _, key := range slices.Concat(res.Missing, res.Expired) {
			c.publish(ctx, domain.Event{
				Type:       domain.EventPruned,
				Kind:       kind,
				Key:        key,
				OccurredAt: c.now().UTC(),
			})
		}
	}
	return res, err
}

// publish отправляет событие; ошибки только логируются.
func (c *Coordinator) publish(ctx context.Context, event domain.Event) {
	if c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	if err := c.events.PublishEvent(ctx, event); err != nil {
		c.logger.Warn("failed to publish event",
			"type", event.Type,
			"kind", event.Kind,
			"request_key", event.Key,
			"error", err,
		)
	}
}

func (c *Coordinator) countAction(kind domain.Kind, action domain.Action, result string) {
	telemetry.Actions.WithLabelValues(kind.String(), string(action.Type), result).Inc()
}

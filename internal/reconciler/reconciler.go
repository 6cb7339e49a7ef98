package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/lock"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/store"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/telemetry"
)

const defaultSchedule = "@every 10m"

// Lookup — поиск артефакта заявки на платформе.
type Lookup interface {
	Exists(ctx context.Context, channelID, messageID int64) (platform.Presence, error)
}

// Reconciler — периодическая сверка хранилища с платформой.
type Reconciler struct {
	store     *store.Store
	locks     *lock.Manager
	lookup    Lookup
	kinds     []domain.Kind
	retention time.Duration
	schedule  cron.Schedule
	now       func() time.Time
	logger    *slog.Logger

	// Lifecycle
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Config — конфигурация Reconciler.
type Config struct {
	Store  *store.Store
	Locks  *lock.Manager
	Lookup Lookup

	// Kinds — какие типы сверять (default: все).
	Kinds []domain.Kind

	// Retention — заявки старше удаляются без проверки платформы (0 — выключено).
	Retention time.Duration

	// Schedule — расписание в формате cron или дескриптор (default: @every 10m).
	Schedule string

	// Now (опционально, для тестов)
	Now func() time.Time

	// Logger
	Logger *slog.Logger
}

// Result — итог сверки одного типа.
type Result struct {
	Kind    domain.Kind
	DryRun  bool
	Checked int          // просмотрено записей
	Missing []domain.Key // артефакт не найден
	Expired []domain.Key // старше окна хранения
	Unknown []domain.Key // ответ не получен, запись оставлена
	Busy    []domain.Key // по заявке идёт действие, пропущена
}

// Pruned возвращает число удалённых (или удаляемых при dry-run) записей.
func (r Result) Pruned() int {
	return len(r.Missing) + len(r.Expired)
}

// New создаёт Reconciler.
func New(cfg Config) (*Reconciler, error) {
	spec := cfg.Schedule
	if spec == "" {
		spec = defaultSchedule
	}
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}

	kinds := cfg.Kinds
	if len(kinds) == 0 {
		kinds = domain.Kinds()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		store:     cfg.Store,
		locks:     cfg.Locks,
		lookup:    cfg.Lookup,
		kinds:     kinds,
		retention: cfg.Retention,
		schedule:  schedule,
		now:       now,
		logger:    logger.With("component", "reconciler"),
	}, nil
}

// Sweep сверяет заявки одного типа и возвращает число удалённых.
// При dryRun ничего не удаляет и возвращает, сколько было бы удалено.
func (r *Reconciler) Sweep(ctx context.Context, kind domain.Kind, dryRun bool) (int, error) {
	res, err := r.SweepDetailed(ctx, kind, dryRun)
	return res.Pruned(), err
}

// SweepDetailed — Sweep с подробным результатом.
//
// Ошибки удаления отдельных записей не прерывают обход и возвращаются
// вместе через errors.Join.
func (r *Reconciler) SweepDetailed(ctx context.Context, kind domain.Kind, dryRun bool) (Result, error) {
	res := Result{Kind: kind, DryRun: dryRun}
	logger := telemetry.WithKind(r.logger, kind.String())

	var errs []error
	for _, rec := range r.store.List(kind) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res.Checked++

		if err := r.check(ctx, rec, dryRun, &res, logger); err != nil {
			errs = append(errs, err)
		}
	}

	dry := strconv.FormatBool(dryRun)
	if n := res.Pruned(); n > 0 {
		telemetry.ReconcilerPruned.WithLabelValues(kind.String(), dry).Add(float64(n))
	}

	logger.Info("sweep completed",
		"dry_run", dryRun,
		"checked", res.Checked,
		"missing", len(res.Missing),
		"expired", len(res.Expired),
		"unknown", len(res.Unknown),
		"busy", len(res.Busy),
	)

	return res, errors.Join(errs...)
}

// check сверяет одну заявку под её блокировкой.
func (r *Reconciler) check(ctx context.Context, rec *domain.Request, dryRun bool, res *Result, logger *slog.Logger) error {
	guard, err := r.locks.Acquire(rec.Key)
	if err != nil {
		res.Busy = append(res.Busy, rec.Key)
		return nil
	}
	defer guard.Release()

	// Пока ждали очереди, заявку могли завершить
	if !r.store.Contains(rec.Kind, rec.Key) {
		return nil
	}

	log := telemetry.WithRequestKey(logger, int64(rec.Key))

	if r.retention > 0 && rec.Age(r.now()) > r.retention {
		res.Expired = append(res.Expired, rec.Key)
		log.Info("request expired", "age", rec.Age(r.now()), "dry_run", dryRun)
		return r.prune(ctx, rec, dryRun)
	}

	if rec.ChannelID == 0 {
		res.Unknown = append(res.Unknown, rec.Key)
		log.Warn("request has no channel, cannot verify")
		return nil
	}

	presence, err := r.lookup.Exists(ctx, rec.ChannelID, int64(rec.Key))
	if err != nil {
		presence = platform.PresenceUnknown
	}

	switch presence {
	case platform.PresenceNotFound:
		res.Missing = append(res.Missing, rec.Key)
		log.Info("request artifact missing", "channel_id", rec.ChannelID, "dry_run", dryRun)
		return r.prune(ctx, rec, dryRun)
	case platform.PresenceUnknown:
		res.Unknown = append(res.Unknown, rec.Key)
		log.Warn("request artifact lookup inconclusive", "channel_id", rec.ChannelID, "error", err)
	}
	return nil
}

// prune удаляет заявку, если это не dry-run.
func (r *Reconciler) prune(ctx context.Context, rec *domain.Request, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := r.store.Delete(ctx, rec.Kind, rec.Key); err != nil {
		return fmt.Errorf("prune %s/%d: %w", rec.Kind, rec.Key, err)
	}
	return nil
}

// SweepAll сверяет все настроенные типы.
func (r *Reconciler) SweepAll(ctx context.Context, dryRun bool) ([]Result, error) {
	results := make([]Result, 0, len(r.kinds))
	var errs []error
	for _, kind := range r.kinds {
		res, err := r.SweepDetailed(ctx, kind, dryRun)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", kind, err))
		}
	}
	return results, errors.Join(errs...)
}

// Start запускает периодическую сверку по расписанию.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(ctx)

	r.logger.Info("reconciler started", "kinds", r.kinds, "retention", r.retention)
}

// Stop останавливает сверку и ждёт завершения текущего прохода.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("reconciler stopped")
}

// loop ждёт следующего срока по расписанию и запускает SweepAll.
func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	for {
		next := r.schedule.Next(r.now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := r.SweepAll(ctx, false); err != nil && ctx.Err() == nil {
				r.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

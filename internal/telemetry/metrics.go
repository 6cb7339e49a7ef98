package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики координационного слоя.
// Регистрируются в prometheus.DefaultRegisterer и отдаются через promhttp.Handler().
var (
	// TaskQueueDropped — задачи, отброшенные SubmitAndForget из-за переполнения.
	TaskQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uvd_taskqueue_dropped_total",
		Help: "Fire-and-forget tasks dropped because the task queue was full",
	})

	// TaskQueueDepth — текущее количество задач в очереди.
	TaskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uvd_taskqueue_depth",
		Help: "Number of tasks waiting in the task queue",
	})

	// TaskQueueTasks — выполненные задачи по результату (ok, error, rejected).
	TaskQueueTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uvd_taskqueue_tasks_total",
		Help: "Tasks processed by the task queue consumer",
	}, []string{"result"})

	// LockContention — попытки захватить уже занятую заявку.
	LockContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uvd_lock_contention_total",
		Help: "Try-lock attempts rejected because the request was already in progress",
	})

	// CallerRetries — повторы внешних вызовов (rate_limited, transient).
	CallerRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uvd_caller_retries_total",
		Help: "Retries of outbound platform calls",
	}, []string{"reason"})

	// CallerFailures — окончательные ошибки внешних вызовов по классу.
	CallerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uvd_caller_failures_total",
		Help: "Outbound platform calls that failed terminally",
	}, []string{"class"})

	// Actions — результаты TryAction.
	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uvd_actions_total",
		Help: "Request actions by kind, action and result",
	}, []string{"kind", "action", "result"})

	// ReconcilerPruned — записи, найденные reconciler'ом как drift.
	ReconcilerPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uvd_reconciler_pruned_total",
		Help: "Records pruned (or reported in dry-run) by the reconciler",
	}, []string{"kind", "dry_run"})

	// Inconsistencies — эффект применён, но запись не сохранена.
	Inconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uvd_inconsistencies_total",
		Help: "Actions whose external effect was applied but whose new state failed to persist",
	})
)

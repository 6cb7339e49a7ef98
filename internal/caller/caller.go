package caller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/telemetry"
)

// Default configuration values.
const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 30 * time.Second
	defaultMaxJitter   = 250 * time.Millisecond
)

// Caller выполняет внешние операции с повторами.
type Caller struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxJitter   time.Duration

	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	jitter  func(max time.Duration) time.Duration

	logger *slog.Logger
}

// Config — конфигурация Caller.
type Config struct {
	MaxAttempts int           // всего попыток, включая первую (default: 5)
	BaseDelay   time.Duration // база экспоненты (default: 500ms)
	MaxDelay    time.Duration // потолок экспоненты (default: 30s)
	MaxJitter   time.Duration // верхняя граница случайной добавки (default: 250ms)

	// Limiter — локальный ограничитель частоты (опционально).
	Limiter *rate.Limiter

	// Sleep и Jitter подменяются в тестах.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(max time.Duration) time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт Caller.
func New(cfg Config) *Caller {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	maxJitter := cfg.MaxJitter
	if maxJitter < 0 {
		maxJitter = 0
	} else if maxJitter == 0 {
		maxJitter = defaultMaxJitter
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	jitter := cfg.Jitter
	if jitter == nil {
		jitter = randomJitter
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Caller{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		maxJitter:   maxJitter,
		limiter:     cfg.Limiter,
		sleep:       sleep,
		jitter:      jitter,
		logger:      logger,
	}
}

// MaxAttempts возвращает предел попыток.
func (c *Caller) MaxAttempts() int {
	return c.maxAttempts
}

// Call выполняет операцию op с повторами.
func (c *Caller) Call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	logger := telemetry.WithOperation(c.logger, op)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s: wait limiter: %w", op, err)
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		// Контекст вызывающего отменён — дальше не пытаемся
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}

		class := classify(err)
		switch class {
		case classPermanent:
			telemetry.CallerFailures.WithLabelValues(failureLabel(err)).Inc()
			return fmt.Errorf("%s: %w", op, err)
		case classUnexpected:
			telemetry.CallerFailures.WithLabelValues("unexpected").Inc()
			if errors.Is(err, ErrUnexpected) {
				return fmt.Errorf("%s: %w", op, err)
			}
			return fmt.Errorf("%w: %s: %w", ErrUnexpected, op, err)
		}

		if attempt == c.maxAttempts {
			break
		}

		delay := c.Backoff(attempt, err)
		telemetry.CallerRetries.WithLabelValues(string(class)).Inc()

		logger.Warn("retrying platform call",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"delay", delay,
			"reason", err,
		)

		if err := c.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	telemetry.CallerFailures.WithLabelValues("exhausted").Inc()
	logger.Error("platform call failed after retries",
		"attempts", c.maxAttempts,
		"error", lastErr,
	)
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrRetryExhausted, op, c.maxAttempts, lastErr)
}

// Do — Call для операций с результатом.
func Do[T any](ctx context.Context, c *Caller, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := c.Call(ctx, op, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

// Backoff вычисляет задержку перед следующей попыткой.
// attempt — номер неудавшейся попытки, начиная с 1.
func (c *Caller) Backoff(attempt int, err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter + c.jitter(c.maxJitter)
	}

	// delay = base * 2^(attempt-1), capped at maxDelay
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			delay = c.maxDelay
			break
		}
	}
	if delay > c.maxDelay {
		delay = c.maxDelay
	}

	return delay + c.jitter(c.maxJitter)
}

// errorClass — класс ошибки для решения о повторе.
type errorClass string

const (
	classRateLimited errorClass = "rate_limited"
	classTransient   errorClass = "transient"
	classPermanent   errorClass = "permanent"
	classUnexpected  errorClass = "unexpected"
)

// classify определяет класс ошибки.
func classify(err error) errorClass {
	switch {
	case IsPermanent(err):
		return classPermanent
	case errors.Is(err, ErrRateLimited):
		return classRateLimited
	case errors.Is(err, ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return classTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classTransient
	}

	return classUnexpected
}

// failureLabel — метка для метрики окончательных ошибок.
func failureLabel(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "not_found"
	}
	return "permission_denied"
}

// sleepContext ждёт d или отмены ctx.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// randomJitter возвращает случайную задержку в [0, max).
func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

package caller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// recorder подменяет sleep и запоминает задержки.
type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

const testJitter = 100 * time.Millisecond

func newTestCaller(rec *recorder) *Caller {
	return New(Config{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		MaxJitter:   testJitter,
		Sleep:       rec.sleep,
	})
}

func TestCaller_SuccessFirstAttempt(t *testing.T) {
	rec := &recorder{}
	c := newTestCaller(rec)

	calls := 0
	err := c.Call(context.Background(), "grant_role", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestCaller_RateLimitHintThenSuccess(t *testing.T) {
	rec := &recorder{}
	c := newTestCaller(rec)

	calls := 0
	err := c.Call(context.Background(), "send_message", func(context.Context) error {
		calls++
		if calls == 1 {
			return &RateLimitError{RetryAfter: 2 * time.Second}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	require.Len(t, rec.delays, 1)
	assert.GreaterOrEqual(t, rec.delays[0], 2*time.Second)
	assert.Less(t, rec.delays[0], 2*time.Second+testJitter)
}

func TestCaller_RateLimitExhausted(t *testing.T) {
	rec := &recorder{}
	c := newTestCaller(rec)

	calls := 0
	err := c.Call(context.Background(), "edit_message", func(context.Context) error {
		calls++
		return &RateLimitError{RetryAfter: 2 * time.Second}
	})
	require.Error(t, err)
	assert.Equal(t, 5, calls)
	assert.Len(t, rec.delays, 4, "no sleep after the last attempt")

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "edit_message")
}

func TestCaller_PermanentErrorsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"permission denied", fmt.Errorf("HTTP 403: %w", ErrPermissionDenied), ErrPermissionDenied},
		{"not found", fmt.Errorf("HTTP 404: %w", ErrNotFound), ErrNotFound},
		{"unexpected", errors.New("bad payload"), ErrUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c := newTestCaller(rec)

			calls := 0
			err := c.Call(context.Background(), "revoke_role", func(context.Context) error {
				calls++
				return tt.err
			})
			assert.Equal(t, 1, calls)
			assert.Empty(t, rec.delays)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "revoke_role")
		})
	}
}

func TestCaller_TransientRetriedWithExponentialBackoff(t *testing.T) {
	rec := &recorder{}
	c := New(Config{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    300 * time.Millisecond,
		MaxJitter:   -1, // без jitter для точной проверки
		Sleep:       rec.sleep,
	})

	err := c.Call(context.Background(), "delete_message", func(context.Context) error {
		return fmt.Errorf("HTTP 502: %w", ErrTransient)
	})
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, ErrTransient)

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}, rec.delays)
}

func TestCaller_Backoff(t *testing.T) {
	c := New(Config{
		BaseDelay: time.Second,
		MaxDelay:  10 * time.Second,
		MaxJitter: -1,
	})

	tests := []struct {
		attempt int
		err     error
		want    time.Duration
	}{
		{1, ErrTransient, time.Second},
		{2, ErrTransient, 2 * time.Second},
		{3, &RateLimitError{}, 4 * time.Second},
		{4, ErrTransient, 8 * time.Second},
		{5, ErrTransient, 10 * time.Second},
		{50, ErrTransient, 10 * time.Second},
		{1, &RateLimitError{RetryAfter: 1500 * time.Millisecond}, 1500 * time.Millisecond},
		// Подсказка платформы не ограничивается MaxDelay
		{1, &RateLimitError{RetryAfter: time.Minute}, time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Backoff(tt.attempt, tt.err), "attempt %d err %v", tt.attempt, tt.err)
	}
}

func TestCaller_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(Config{
		BaseDelay: time.Hour,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})

	err := c.Call(ctx, "grant_role", func(context.Context) error {
		return ErrTransient
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCaller_WaitsOnLimiter(t *testing.T) {
	c := New(Config{Limiter: rate.NewLimiter(rate.Inf, 1)})

	err := c.Call(context.Background(), "noop", func(context.Context) error { return nil })
	require.NoError(t, err)

	// Нулевой burst — Wait вернёт ошибку, до вызова дело не дойдёт
	blocked := New(Config{Limiter: rate.NewLimiter(1, 0)})
	called := false
	err = blocked.Call(context.Background(), "noop", func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestDo_ReturnsValue(t *testing.T) {
	c := New(Config{Sleep: (&recorder{}).sleep})

	calls := 0
	v, err := Do(context.Background(), c, "lookup", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", ErrTransient
		}
		return "found", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "found", v)
	assert.Equal(t, 3, calls)
}

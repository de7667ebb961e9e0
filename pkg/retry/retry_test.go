package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "imgfetch/pkg/errors"
	"imgfetch/pkg/logger"
)

func TestSearchBackoff(t *testing.T) {
	backoff := &SearchBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt"},
		{1, 100 * time.Millisecond, "First retry"},
		{2, 200 * time.Millisecond, "Second retry"},
		{3, 400 * time.Millisecond, "Third retry"},
		{4, 800 * time.Millisecond, "Fourth retry"},
		{5, 1 * time.Second, "Fifth retry (capped at max)"},
		{6, 1 * time.Second, "Sixth retry (still capped)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			assert.Equal(t, test.expected, backoff.Delay(test.attempt, errs.New(errs.KindServerError, "boom")))
		})
	}
}

func TestSearchBackoffJitter(t *testing.T) {
	backoff := &SearchBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.25,
	}

	backoff.random = func() float64 { return 0 }
	assert.Equal(t, 150*time.Millisecond, backoff.Delay(2, nil))

	backoff.random = func() float64 { return 1 }
	assert.Equal(t, 250*time.Millisecond, backoff.Delay(2, nil))

	backoff.random = nil
	for i := 0; i < 10; i++ {
		delay := backoff.Delay(2, nil)
		assert.GreaterOrEqual(t, delay, 150*time.Millisecond)
		assert.LessOrEqual(t, delay, 250*time.Millisecond)
	}
}

func TestSearchBackoffHonoursRetryAfter(t *testing.T) {
	backoff := &SearchBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.5,
	}

	hinted := errs.FromStatus(503)
	hinted.RetryAfter = 3 * time.Second
	assert.Equal(t, 3*time.Second, backoff.Delay(1, hinted), "the server hint replaces the computed delay")

	wrapped := fmt.Errorf("search failed: %w", hinted)
	assert.Equal(t, 3*time.Second, backoff.Delay(4, wrapped))

	hinted.RetryAfter = time.Hour
	assert.Equal(t, 10*time.Second, backoff.Delay(1, hinted), "hints are capped at MaxDelay")
}

func TestConstantBackoff(t *testing.T) {
	hinted := errs.FromStatus(503)
	hinted.RetryAfter = time.Minute

	backoff := ConstantBackoff{Interval: 5 * time.Millisecond}
	assert.Zero(t, backoff.Delay(0, nil))
	assert.Equal(t, 5*time.Millisecond, backoff.Delay(3, hinted))
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     ConstantBackoff{Interval: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     context.Background(),
	}

	require.NoError(t, Do(op, cfg))
	assert.Equal(t, 3, attempts)
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	persistent := errs.New(errs.KindServerError, "bad gateway")
	op := func() error {
		attempts++
		return persistent
	}

	var retried []int
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     ConstantBackoff{Interval: 10 * time.Millisecond},
		RetryIf:     DefaultRetryIf,
		OnRetry:     func(attempt int, err error, delay time.Duration) { retried = append(retried, attempt) },
		Context:     context.Background(),
	}

	err := Do(op, cfg)
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried, "no wait after the final attempt")
	assert.ErrorIs(t, err, persistent)
	assert.Equal(t, errs.KindServerError, errs.KindOf(err))
}

func TestRetrySingleAttemptReturnsErrorUnchanged(t *testing.T) {
	attempts := 0
	netErr := errs.New(errs.KindNetwork, "connection refused")

	err := Do(func() error {
		attempts++
		return netErr
	}, &Config{MaxAttempts: 1, Backoff: ConstantBackoff{Interval: time.Hour}})

	assert.Same(t, netErr, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithNonRetryableError(t *testing.T) {
	for _, kind := range []errs.Kind{errs.KindAuth, errs.KindRateLimit, errs.KindParsing} {
		t.Run(string(kind), func(t *testing.T) {
			attempts := 0
			apiErr := &errs.Error{Kind: kind, Message: "not retryable"}

			err := Do(func() error {
				attempts++
				return apiErr
			}, &Config{
				MaxAttempts: 5,
				Backoff:     ConstantBackoff{Interval: 10 * time.Millisecond},
				RetryIf:     DefaultRetryIf,
				Context:     context.Background(),
			})

			assert.Same(t, apiErr, err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.True(t, DefaultRetryIf(errors.New("something odd")))
	assert.True(t, DefaultRetryIf(errs.New(errs.KindNetwork, "reset")))
	assert.True(t, DefaultRetryIf(errs.FromStatus(503)))
	assert.False(t, DefaultRetryIf(errs.FromStatus(401)))
	assert.False(t, DefaultRetryIf(errs.FromStatus(403)))
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     ConstantBackoff{Interval: 100 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     ctx,
	}

	err := Do(op, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     ConstantBackoff{Interval: 10 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
		Context:     context.Background(),
	}

	result, err := DoWithResult(op, cfg)
	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 2, attempts)
}

func TestNewSearchRetrier(t *testing.T) {
	log := logger.NewTestLogger()

	r := NewSearchRetrier(0, 0, log)
	assert.Equal(t, 1, r.MaxAttempts())

	r = NewSearchRetrier(3, 5*time.Millisecond, log).WithBackoff(ConstantBackoff{Interval: time.Millisecond})
	assert.Equal(t, 3, r.MaxAttempts())

	attempts := 0
	err := r.Do(func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.KindNetwork, "timeout")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, log.HasMessage("retrying operation"))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

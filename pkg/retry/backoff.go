package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "imgfetch/pkg/errors"
)

// Backoff chooses the wait before the next search attempt. attempt counts the
// failures so far (1 after the first) and err is the failure being retried.
type Backoff interface {
	Delay(attempt int, err error) time.Duration
}

// SearchBackoff grows the wait exponentially between search attempts. When the
// failed response carried a Retry-After hint, the hint is used instead, capped
// at MaxDelay.
type SearchBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Jitter spreads each computed delay by up to this fraction either way
	Jitter float64

	random func() float64
}

// DefaultSearchBackoff starts at one second and never waits longer than a minute
func DefaultSearchBackoff() *SearchBackoff {
	return &SearchBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Delay implements Backoff
func (b *SearchBackoff) Delay(attempt int, err error) time.Duration {
	if attempt <= 0 {
		return 0
	}

	if hint := errs.RetryAfterOf(err); hint > 0 {
		return b.capped(float64(hint))
	}

	delay := float64(b.BaseDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.Jitter > 0 {
		delay += delay * b.Jitter * (2*b.rand() - 1)
	}
	return b.capped(delay)
}

func (b *SearchBackoff) capped(delay float64) time.Duration {
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

func (b *SearchBackoff) rand() float64 {
	if b.random != nil {
		return b.random()
	}
	return rand.Float64()
}

// ConstantBackoff waits the same interval before every attempt, ignoring server hints
type ConstantBackoff struct {
	Interval time.Duration
}

// Delay implements Backoff
func (c ConstantBackoff) Delay(attempt int, _ error) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return c.Interval
}

// Wait sleeps for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

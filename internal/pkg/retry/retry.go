// Package retry replays an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy controls how often and how patiently an operation is replayed.
//
// Every failed retryable attempt is followed by a wait, the last one included,
// so the default policy spends 1+2+4+8+16 = 31s waiting before it gives up.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64

	// Retryable decides whether an error is worth another attempt. Defaults to apperrors.IsRetryable.
	Retryable func(error) bool
	// Sleep defaults to SleepContext.
	Sleep Sleeper
	// OnBackoff is called before each wait.
	OnBackoff func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy is 5 attempts starting at 1s and doubling
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		Multiplier:     2,
	}
}

// Delays returns the waits the policy would perform if every attempt failed
func (p Policy) Delays() []time.Duration {
	schedule := p.schedule()
	out := make([]time.Duration, 0, p.MaxAttempts)
	for i := 0; i < p.MaxAttempts; i++ {
		out = append(out, schedule.NextBackOff())
	}
	return out
}

func (p Policy) schedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = 24 * time.Hour
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return apperrors.IsRetryable(err)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	schedule := p.schedule()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(err, ctxErr)
		}

		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !p.retryable(err) {
			return err
		}

		delay := schedule.NextBackOff()
		if p.OnBackoff != nil {
			p.OnBackoff(attempt, delay, err)
		}
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", p.MaxAttempts, err)
}

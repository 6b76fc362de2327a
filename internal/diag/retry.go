package diag

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Upsolver/iceberg-diag/internal/logger"
)

// RetryPolicy bounds retries of transient remote failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt; each further
	// attempt doubles it, up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the per-attempt delay.
	MaxBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 8 * time.Second
	}
	return p
}

// backoffFor returns the jittered delay before the given retry (0-based).
func (p RetryPolicy) backoffFor(retry int) time.Duration {
	d := p.InitialBackoff << retry
	if d > p.MaxBackoff || d <= 0 {
		d = p.MaxBackoff
	}
	// Jitter in [0.75, 1.25) to spread retries from concurrent pipelines.
	return time.Duration(float64(d) * (0.75 + 0.5*rand.Float64()))
}

// retryTransient runs fn, retrying transient failures with bounded
// exponential backoff. Non-transient failures and context cancellation
// return immediately; exhausting the attempts returns the last error.
func retryTransient(ctx context.Context, policy RetryPolicy, vlogger *logger.VerboseLogger, op string, fn func(context.Context) error) error {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := policy.backoffFor(attempt - 1)
			vlogger.Debug("retrying after transient failure",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if KindOf(lastErr) != KindTransient {
			return lastErr
		}
	}

	return lastErr
}

// Package retry wraps a single outbound transport call with bounded
// retries and exponential delay. Rate-limited sources degrade into a
// well-formed placeholder outcome instead of an error, so callers
// never special-case 403/429.
package retry

import (
	"context"
	"time"

	"coinpanel/internal/transport"
)

const (
	DefaultMaxAttempts   = 3
	defaultBaseDelay     = 500 * time.Millisecond
	defaultCapDelay      = 5 * time.Second
	rateLimitedBaseDelay = time.Second
	rateLimitedCapDelay  = 10 * time.Second
)

// Outcome is the well-formed result of a wrapped call. Degraded marks
// a synthetic empty result produced after rate-limit exhaustion; the
// original error text is kept for the fallback record.
type Outcome struct {
	Body       []byte
	Degraded   bool
	DegradedBy string
}

type Controller struct {
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(maxAttempts int) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Controller{
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
	}
}

// Do invokes fn up to maxAttempts times. Attempt n waits
// min(base«2^(n-1), cap) before retrying — base 500ms/cap 5s
// generally, base 1s/cap 10s for rate limits. Timeouts are never
// retried: the per-call budget is already the ceiling.
func (c *Controller) Do(ctx context.Context, fn func(context.Context) ([]byte, error)) (Outcome, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := fn(ctx)
		if err == nil {
			return Outcome{Body: body}, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		if transport.IsTimeout(err) {
			return Outcome{}, err
		}
		if attempt == c.maxAttempts {
			break
		}
		if serr := c.sleep(ctx, backoffDelay(attempt, transport.IsRateLimited(err))); serr != nil {
			return Outcome{}, serr
		}
	}

	if transport.IsRateLimited(lastErr) {
		return Outcome{Degraded: true, DegradedBy: lastErr.Error()}, nil
	}
	return Outcome{}, lastErr
}

func backoffDelay(attempt int, rateLimited bool) time.Duration {
	base, ceiling := defaultBaseDelay, defaultCapDelay
	if rateLimited {
		base, ceiling = rateLimitedBaseDelay, rateLimitedCapDelay
	}
	delay := base << (attempt - 1)
	if delay > ceiling {
		delay = ceiling
	}
	return delay
}

// sleepContext is a suspension point, not a blocking wait: other
// requests keep making progress, and cancellation stops the schedule.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

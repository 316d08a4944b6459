package stream

import (
	"context"
	"math/rand"
	"time"

	"github.com/meridian-labs/lookout/internal/logger"
)

// RetryPolicy decides whether and when to attempt a reconnect. The stream
// client itself never retries; callers wrap Dial with a policy so tests
// can substitute deterministic timing.
type RetryPolicy interface {
	// NextDelay returns the wait before reconnect attempt number attempt
	// (1-based), and false when no further attempt should be made.
	NextDelay(attempt int) (time.Duration, bool)
}

// Backoff is a bounded exponential backoff policy with jitter.
type Backoff struct {
	// Initial is the delay before the first retry.
	Initial time.Duration

	// Max caps the per-attempt delay.
	Max time.Duration

	// MaxAttempts caps the number of retries; zero means no retries.
	MaxAttempts int

	// Jitter perturbs the computed delay. When nil, a delay uniformly
	// drawn from [d/2, d) is used.
	Jitter func(time.Duration) time.Duration
}

// DefaultBackoff returns the backoff policy used by the watch command.
func DefaultBackoff(maxAttempts int) Backoff {
	return Backoff{
		Initial:     500 * time.Millisecond,
		Max:         10 * time.Second,
		MaxAttempts: maxAttempts,
	}
}

// NextDelay implements RetryPolicy.
func (b Backoff) NextDelay(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > b.MaxAttempts {
		return 0, false
	}

	delay := b.Initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Max {
			delay = b.Max
			break
		}
	}

	if b.Jitter != nil {
		return b.Jitter(delay), true
	}
	return delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1)), true
}

// NoRetry is the policy that never reconnects.
type NoRetry struct{}

// NextDelay implements RetryPolicy.
func (NoRetry) NextDelay(int) (time.Duration, bool) {
	return 0, false
}

// DialWithRetry dials the stream endpoint, retrying failed connection
// attempts according to the policy. It returns the first established
// client, or the last dial error once the policy gives up.
func DialWithRetry(ctx context.Context, url string, policy RetryPolicy, opts Options) (*Client, error) {
	log := logger.WithField("component", "stream")

	var lastErr error
	for attempt := 0; ; attempt++ {
		client, err := Dial(ctx, url, opts)
		if err == nil {
			return client, nil
		}
		lastErr = err

		delay, retry := policy.NextDelay(attempt + 1)
		if !retry {
			return nil, lastErr
		}

		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).WithError(err).Warn("Stream connection failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

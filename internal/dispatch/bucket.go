package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crosscheck/pkg/platform/sentinel"
)

// tokenBucket is a continuously refilling rate limiter. Capacity equals the
// per-minute budget, refill runs at budget/60 tokens per second, so a burst
// can spend the full minute's allowance and then drains at a steady rate.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	cap    float64
	rate   float64 // tokens per second
	last   time.Time
	now    func() time.Time
}

func newTokenBucket(requestsPerMinute int, now func() time.Time) *tokenBucket {
	if now == nil {
		now = time.Now
	}
	cap := float64(requestsPerMinute)
	return &tokenBucket{
		tokens: cap,
		cap:    cap,
		rate:   cap / 60.0,
		last:   now(),
		now:    now,
	}
}

// take blocks until a token is available or the context expires. Expiry maps
// to ErrRateLimitTimeout so callers can distinguish throttling from source
// failure.
func (b *tokenBucket) take(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refill()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", sentinel.ErrRateLimitTimeout, ctx.Err())
		}
	}
}

func (b *tokenBucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.rate
	if b.tokens > b.cap {
		b.tokens = b.cap
	}
	b.last = now
}

// available reports the current token count, for tests and introspection.
func (b *tokenBucket) available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens
}

// Package dispatch owns all outbound traffic to external sources. Every
// query passes through a per-source token bucket and concurrency cap, with
// transient failures retried under exponential backoff.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"crosscheck/internal/dispatch/metrics"
	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
	"crosscheck/internal/sources"
	id "crosscheck/pkg/domain"
	"crosscheck/pkg/platform/sentinel"
)

const (
	maxAttempts   = 3
	backoffBase   = 500 * time.Millisecond
	backoffFactor = 2
	jitterFrac    = 0.2
)

// Dispatcher routes queries to registered source adapters while enforcing
// each source's rate limit and concurrency budget.
type Dispatcher struct {
	entries map[id.SourceID]*sourceEntry
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	sleep   func(context.Context, time.Duration) error
}

type sourceEntry struct {
	adapter sources.Adapter
	bucket  *tokenBucket
	sem     *semaphore.Weighted
}

func New(logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		entries: make(map[id.SourceID]*sourceEntry),
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("crosscheck/dispatch"),
		sleep:   sleepContext,
	}
}

// Register adds a source with its rate limit budget. Registration happens at
// startup; the dispatcher is not safe for concurrent registration.
func (d *Dispatcher) Register(adapter sources.Adapter, limit config.RateLimit) {
	d.entries[adapter.ID()] = &sourceEntry{
		adapter: adapter,
		bucket:  newTokenBucket(limit.RequestsPerMinute, nil),
		sem:     semaphore.NewWeighted(int64(limit.ConcurrentRequests)),
	}
}

// Sources lists the registered source ids.
func (d *Dispatcher) Sources() []id.SourceID {
	out := make([]id.SourceID, 0, len(d.entries))
	for srcID := range d.entries {
		out = append(out, srcID)
	}
	return out
}

// Category reports the category of a registered source.
func (d *Dispatcher) Category(sourceID id.SourceID) (domain.SourceCategory, bool) {
	entry, ok := d.entries[sourceID]
	if !ok {
		return "", false
	}
	return entry.adapter.Category(), true
}

// Submit runs one query against one source. It blocks on the source's
// concurrency cap and token bucket, then retries transient failures up to
// maxAttempts with exponential backoff. Each attempt spends a token.
func (d *Dispatcher) Submit(ctx context.Context, sourceID id.SourceID, criteria sources.Criteria) ([]domain.Candidate, error) {
	entry, ok := d.entries[sourceID]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", sourceID, sentinel.ErrNotFound)
	}

	ctx, span := d.tracer.Start(ctx, "dispatch.Submit",
		trace.WithAttributes(attribute.String("source", string(sourceID))))
	defer span.End()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		d.metrics.IncrementRequests(string(sourceID), "throttled")
		return nil, fmt.Errorf("source %s: %w: %v", sourceID, sentinel.ErrRateLimitTimeout, err)
	}
	defer entry.sem.Release(1)

	d.metrics.AddInFlight(string(sourceID), 1)
	defer d.metrics.AddInFlight(string(sourceID), -1)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		waitStart := time.Now()
		if err := entry.bucket.take(ctx); err != nil {
			d.metrics.IncrementRequests(string(sourceID), "throttled")
			return nil, fmt.Errorf("source %s: %w", sourceID, err)
		}
		d.metrics.ObserveThrottleWait(string(sourceID), time.Since(waitStart))

		candidates, err := entry.adapter.Query(ctx, criteria)
		if err == nil {
			d.metrics.IncrementRequests(string(sourceID), "ok")
			return candidates, nil
		}
		lastErr = err

		if !sentinel.Transient(err) {
			d.metrics.IncrementRequests(string(sourceID), "error")
			return nil, fmt.Errorf("source %s: %w: %v", sourceID, sentinel.ErrSource, err)
		}
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			break
		}
		if attempt < maxAttempts {
			delay := backoff(attempt)
			d.metrics.IncrementRetries(string(sourceID))
			d.logger.WarnContext(ctx, "source query failed, retrying",
				"source", sourceID, "attempt", attempt, "delay", delay, "error", err)
			if err := d.sleep(ctx, delay); err != nil {
				break
			}
		}
	}

	d.metrics.IncrementRequests(string(sourceID), "error")
	return nil, fmt.Errorf("source %s: attempts exhausted: %w", sourceID, lastErr)
}

// backoff returns the delay before the given retry, with ±20% jitter so
// concurrent callers do not retry in lockstep.
func backoff(attempt int) time.Duration {
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= backoffFactor
	}
	jitter := 1 + jitterFrac*(2*rand.Float64()-1)
	return time.Duration(float64(d) * jitter)
}

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

package sources

import (
	"context"
	"sync/atomic"
	"time"

	"crosscheck/internal/domain"
)

// MockAdapter returns canned results with configurable latency and failures.
// FailFirst makes the first N queries fail, which exercises retry paths.
type MockAdapter struct {
	SourceID  domain.SourceID
	Cat       domain.SourceCategory
	Latency   time.Duration
	Results   []domain.Candidate
	Err       error
	FailFirst int32

	calls atomic.Int32
}

func (m *MockAdapter) ID() domain.SourceID             { return m.SourceID }
func (m *MockAdapter) Category() domain.SourceCategory { return m.Cat }

func (m *MockAdapter) Query(ctx context.Context, criteria Criteria) ([]domain.Candidate, error) {
	call := m.calls.Add(1)
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil && (m.FailFirst == 0 || call <= m.FailFirst) {
		return nil, m.Err
	}
	out := make([]domain.Candidate, len(m.Results))
	copy(out, m.Results)
	for i := range out {
		out[i].Source = m.SourceID
		if out[i].Category == "" {
			out[i].Category = m.Cat
		}
	}
	return out, nil
}

// Calls reports how many queries the adapter has served.
func (m *MockAdapter) Calls() int { return int(m.calls.Load()) }

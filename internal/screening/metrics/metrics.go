package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening module.
type Metrics struct {
	// Rounds by trigger and outcome
	Rounds *prometheus.CounterVec

	// Match decisions by verdict
	Decisions *prometheus.CounterVec

	// Runs reaching Done, by final tier
	RunsCompleted *prometheus.CounterVec

	// Full round latency including throttling
	RoundDuration prometheus.Histogram
}

// New creates a new Metrics instance with all screening metrics registered.
func New() *Metrics {
	return &Metrics{
		Rounds: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_screening_rounds_total",
			Help: "Total search rounds by trigger and outcome",
		}, []string{"trigger", "outcome"}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_screening_match_decisions_total",
			Help: "Total match decisions by verdict",
		}, []string{"decision"}),

		RunsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_screening_runs_completed_total",
			Help: "Total completed screening runs by risk tier",
		}, []string{"tier"}),

		RoundDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crosscheck_screening_round_duration_seconds",
			Help:    "Duration of one search round including rate limit waits",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncrementRounds records one finished round.
func (m *Metrics) IncrementRounds(trigger, outcome string) {
	if m != nil {
		m.Rounds.WithLabelValues(trigger, outcome).Inc()
	}
}

// IncrementDecisions records one match decision.
func (m *Metrics) IncrementDecisions(decision string) {
	if m != nil {
		m.Decisions.WithLabelValues(decision).Inc()
	}
}

// IncrementRunsCompleted records one run reaching its final state.
func (m *Metrics) IncrementRunsCompleted(tier string) {
	if m != nil {
		m.RunsCompleted.WithLabelValues(tier).Inc()
	}
}

// ObserveRoundDuration records a round's wall time.
func (m *Metrics) ObserveRoundDuration(d time.Duration) {
	if m != nil {
		m.RoundDuration.Observe(d.Seconds())
	}
}

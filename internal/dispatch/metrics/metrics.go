package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the dispatch module.
type Metrics struct {
	// Source query outcomes by source and result
	Requests *prometheus.CounterVec

	// Retries by source
	Retries *prometheus.CounterVec

	// Time spent waiting for a rate limit token
	ThrottleWait *prometheus.HistogramVec

	// Queries currently running against each source
	InFlight *prometheus.GaugeVec
}

// New creates a new Metrics instance with all dispatch metrics registered.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_dispatch_requests_total",
			Help: "Total source queries by source and outcome",
		}, []string{"source", "outcome"}), // outcome: "ok", "error", "throttled"

		Retries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crosscheck_dispatch_retries_total",
			Help: "Total retried source queries by source",
		}, []string{"source"}),

		ThrottleWait: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crosscheck_dispatch_throttle_wait_seconds",
			Help:    "Time spent waiting for a rate limit token by source",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),

		InFlight: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crosscheck_dispatch_in_flight",
			Help: "Source queries currently in flight by source",
		}, []string{"source"}),
	}
}

// IncrementRequests records a completed query with its outcome.
func (m *Metrics) IncrementRequests(source, outcome string) {
	if m != nil {
		m.Requests.WithLabelValues(source, outcome).Inc()
	}
}

// IncrementRetries records one retry against a source.
func (m *Metrics) IncrementRetries(source string) {
	if m != nil {
		m.Retries.WithLabelValues(source).Inc()
	}
}

// ObserveThrottleWait records how long a caller waited for a token.
func (m *Metrics) ObserveThrottleWait(source string, d time.Duration) {
	if m != nil {
		m.ThrottleWait.WithLabelValues(source).Observe(d.Seconds())
	}
}

// AddInFlight tracks the number of running queries for a source.
func (m *Metrics) AddInFlight(source string, delta float64) {
	if m != nil {
		m.InFlight.WithLabelValues(source).Add(delta)
	}
}

package monitoring

import (
	"time"

	"github.com/GriffinCanCode/boxfs/internal/shared/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	OpsTotal      *prometheus.CounterVec
	OpDuration    *prometheus.HistogramVec
	EntryFailures *prometheus.CounterVec
	BytesWritten  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is what tests and one-shot commands want.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		OpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Operation duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"op", "strategy"},
		),
		EntryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entry_failures_total",
				Help:      "Total number of failed entries by kind",
			},
			[]string{"op", "kind"},
		),
		BytesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_written_total",
				Help:      "Total number of bytes written by successful fetches and uploads",
			},
			[]string{"op"},
		),
	}
}

// RecordResult records one finished operation.
func (m *Metrics) RecordResult(res *types.Result, duration time.Duration) {
	if m == nil || res == nil {
		return
	}

	m.OpsTotal.WithLabelValues(res.Op, string(res.Outcome)).Inc()
	m.OpDuration.WithLabelValues(res.Op, res.Strategy).Observe(duration.Seconds())
	for _, e := range res.Failures() {
		m.EntryFailures.WithLabelValues(res.Op, string(e.Kind)).Inc()
	}
	if res.Bytes > 0 && res.Outcome == types.OutcomeSuccess {
		m.BytesWritten.WithLabelValues(res.Op).Add(float64(res.Bytes))
	}
}

// Timer measures one operation.
type Timer struct {
	metrics *Metrics
	start   time.Time
}

// StartTimer starts timing an operation.
func (m *Metrics) StartTimer() *Timer {
	return &Timer{metrics: m, start: time.Now()}
}

// Stop records res with the elapsed time and returns the elapsed time.
func (t *Timer) Stop(res *types.Result) time.Duration {
	elapsed := time.Since(t.start)
	t.metrics.RecordResult(res, elapsed)
	return elapsed
}

package metrics

import (
	"errors"
	"time"

	"benritz/giltcalc/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for gilt valuations.
type Metrics struct {
	// Valuation outcomes by price source and result
	EvaluationOutcome *prometheus.CounterVec

	// Single valuation latency
	EvaluateLatency prometheus.Histogram

	// Batch sizes and latency
	BatchRows    prometheus.Histogram
	BatchLatency prometheus.Histogram
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EvaluationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gilts_evaluations_total",
			Help: "Total gilt valuations by price source and outcome",
		}, []string{"source", "outcome"}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gilts_evaluate_duration_seconds",
			Help:    "Duration of a single gilt valuation",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		BatchRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gilts_batch_rows",
			Help:    "Number of rows per batch valuation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		}),

		BatchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gilts_batch_duration_seconds",
			Help:    "Duration of a batch valuation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// Outcome classifies a valuation error into a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrInvalidTerms):
		return "invalid_terms"
	case errors.Is(err, types.ErrOutOfRangeDate):
		return "out_of_range"
	case errors.Is(err, types.ErrNoConvergence):
		return "no_convergence"
	default:
		return "error"
	}
}

// ObserveEvaluation records the outcome and duration of one valuation.
func (m *Metrics) ObserveEvaluation(source types.PriceSource, err error, d time.Duration) {
	if m == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	m.EvaluationOutcome.WithLabelValues(string(source), Outcome(err)).Inc()
	m.EvaluateLatency.Observe(d.Seconds())
}

// ObserveBatch records the size and duration of a batch.
func (m *Metrics) ObserveBatch(rows int, d time.Duration) {
	if m == nil {
		return
	}
	m.BatchRows.Observe(float64(rows))
	m.BatchLatency.Observe(d.Seconds())
}

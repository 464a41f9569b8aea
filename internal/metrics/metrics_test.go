package metrics

import (
	"fmt"
	"testing"
	"time"

	"benritz/giltcalc/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "invalid_terms", Outcome(types.FieldErrors{{Field: "isin", Message: "required"}}))
	assert.Equal(t, "out_of_range", Outcome(types.ErrOutOfRangeDate))
	assert.Equal(t, "no_convergence", Outcome(fmt.Errorf("solve: %w", types.ErrNoConvergence)))
	assert.Equal(t, "error", Outcome(types.ErrDataUnavailable))
}

func TestObserveEvaluation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveEvaluation(types.PriceSourceMarket, nil, time.Millisecond)
	m.ObserveEvaluation(types.PriceSourceMarket, nil, time.Millisecond)
	m.ObserveEvaluation("", types.ErrOutOfRangeDate, time.Millisecond)
	m.ObserveBatch(10, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EvaluationOutcome.WithLabelValues("market", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationOutcome.WithLabelValues("unknown", "out_of_range")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvaluation(types.PriceSourceModelFlat, nil, time.Millisecond)
		m.ObserveBatch(1, time.Millisecond)
	})
}

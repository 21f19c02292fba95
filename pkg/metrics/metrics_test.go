package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("medbot", "test", reg)

	m.ObserveIntent("greeting")
	m.ObserveIntent("greeting")
	m.ObserveOutcome("greeting", "success", time.Millisecond)
	m.ObserveCacheLookup(true)
	m.ObserveDatabase("insert_prediction", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IntentsClassified.WithLabelValues("greeting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlternativeCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("insert_prediction", "error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveIntent("general")
		m.ObserveOutcome("general", "degraded", time.Second)
		m.ObservePrediction("predicted")
		m.ObserveSymptomMatch("fuzzy")
		m.ObserveSinkFailure("dropped")
		m.ObserveCacheLookup(false)
		m.ObserveRedis("publish", nil, time.Second)
	})
}

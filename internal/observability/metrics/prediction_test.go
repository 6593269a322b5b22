package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

func TestPredictionMetrics_ObservePrediction(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewPredictionMetrics(registry)
	require.NoError(t, err)

	m.ObservePrediction(models.PredictionMilkYield, "success", 20*time.Millisecond)
	m.ObservePrediction(models.PredictionMilkYield, "success", 30*time.Millisecond)
	m.ObservePrediction(models.PredictionHealthRisk, "not_found", time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.predictionsTotal.WithLabelValues("milk_yield", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.predictionsTotal.WithLabelValues("health_risk", "not_found")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.predictionDuration))
}

func TestNewPredictionMetrics_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewPredictionMetrics(registry)
	require.NoError(t, err)

	_, err = NewPredictionMetrics(registry)
	assert.Error(t, err)
}

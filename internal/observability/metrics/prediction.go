// Package metrics exposes Prometheus instrumentation for the prediction pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// PredictionMetrics records prediction outcomes and latency.
type PredictionMetrics struct {
	predictionsTotal   *prometheus.CounterVec
	predictionDuration *prometheus.HistogramVec
}

// NewPredictionMetrics creates the collectors and registers them.
func NewPredictionMetrics(registry prometheus.Registerer) (*PredictionMetrics, error) {
	m := &PredictionMetrics{
		predictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairy_predictions_total",
				Help: "Total number of prediction requests by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		predictionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dairy_prediction_duration_seconds",
				Help: "Time taken to extract, score and persist a prediction",
				// 5ms to ~10s
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"kind"},
		),
	}

	for _, c := range []prometheus.Collector{m.predictionsTotal, m.predictionDuration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObservePrediction implements prediction.Recorder.
func (m *PredictionMetrics) ObservePrediction(kind models.PredictionKind, outcome string, elapsed time.Duration) {
	m.predictionsTotal.WithLabelValues(string(kind), outcome).Inc()
	m.predictionDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

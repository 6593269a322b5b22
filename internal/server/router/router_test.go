package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/observability/metrics"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/service/prediction"
)

type stubService struct{}

func (stubService) Predict(_ context.Context, id string, kind models.PredictionKind) (*models.PredictionResult, error) {
	return &models.PredictionResult{AnimalID: id, Kind: kind}, nil
}

func (stubService) BatchPredict(context.Context, []string, models.PredictionKind) []models.PredictionResult {
	return nil
}

func (stubService) GetPredictionHistory(context.Context, string, int) ([]models.PredictionResult, error) {
	return []models.PredictionResult{}, nil
}

func (stubService) GetModelMetrics(context.Context) []models.ModelMetric {
	return []models.ModelMetric{}
}

func (stubService) ModelStatus() prediction.ModelInfo {
	return prediction.ModelInfo{Mode: "heuristic"}
}

func TestRouter_Routes(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewPredictionMetrics(registry)
	require.NoError(t, err)
	m.ObservePrediction(models.PredictionMilkYield, "success", 20*time.Millisecond)

	core, logs := observer.New(zap.InfoLevel)
	r := New(handlers.NewPredictionHandler(stubService{}, nil), registry, zap.New(core))

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/models/status", http.StatusOK},
		{http.MethodGet, "/api/models/metrics", http.StatusOK},
		{http.MethodGet, "/api/animals/cow-1/predictions", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/webhook", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, tt.path)
		if tt.path == "/metrics" {
			assert.Contains(t, w.Body.String(), `dairy_predictions_total{kind="milk_yield",outcome="success"} 1`)
		}
	}

	assert.Equal(t, len(tests), logs.FilterMessage("request completed").Len())
}

func TestRouter_WithoutGatherer(t *testing.T) {
	r := New(handlers.NewPredictionHandler(stubService{}, nil), nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

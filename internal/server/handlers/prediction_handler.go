package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/features"
	"github.com/mamadbah2/dairy/internal/service/prediction"
)

const maxBatchSize = 500

// PredictionService is the subset of prediction.Service the HTTP layer uses.
type PredictionService interface {
	Predict(ctx context.Context, animalID string, kind models.PredictionKind) (*models.PredictionResult, error)
	BatchPredict(ctx context.Context, animalIDs []string, kind models.PredictionKind) []models.PredictionResult
	GetPredictionHistory(ctx context.Context, animalID string, limit int) ([]models.PredictionResult, error)
	GetModelMetrics(ctx context.Context) []models.ModelMetric
	ModelStatus() prediction.ModelInfo
}

// PredictionHandler exposes predictions over HTTP.
type PredictionHandler struct {
	svc    PredictionService
	logger *zap.Logger
}

// NewPredictionHandler constructs the HTTP handler adapter.
func NewPredictionHandler(svc PredictionService, logger *zap.Logger) *PredictionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictionHandler{svc: svc, logger: logger}
}

type predictRequest struct {
	AnimalID string `json:"animal_id" binding:"required"`
}

type batchRequest struct {
	AnimalIDs []string `json:"animal_ids" binding:"required"`
}

type batchResponse struct {
	Requested int                       `json:"requested"`
	Returned  int                       `json:"returned"`
	Results   []models.PredictionResult `json:"results"`
}

// Predict scores a single animal.
func (h *PredictionHandler) Predict(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "animal_id is required"})
		return
	}

	result, err := h.svc.Predict(c.Request.Context(), req.AnimalID, kind)
	if err != nil {
		h.writeError(c, err, req.AnimalID)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PredictBatch scores many animals; failures are omitted from the results.
func (h *PredictionHandler) PredictBatch(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "animal_ids is required"})
		return
	}
	if len(req.AnimalIDs) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many animal_ids", "max": maxBatchSize})
		return
	}

	results := h.svc.BatchPredict(c.Request.Context(), req.AnimalIDs, kind)
	c.JSON(http.StatusOK, batchResponse{
		Requested: len(req.AnimalIDs),
		Returned:  len(results),
		Results:   results,
	})
}

// History lists stored predictions for an animal, newest first.
func (h *PredictionHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	animalID := c.Param("id")
	results, err := h.svc.GetPredictionHistory(c.Request.Context(), animalID, limit)
	if err != nil {
		h.writeError(c, err, animalID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"animal_id": animalID, "predictions": results})
}

// Metrics returns stored model evaluation metrics.
func (h *PredictionHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": h.svc.GetModelMetrics(c.Request.Context())})
}

// Status reports the active predictor.
func (h *PredictionHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ModelStatus())
}

func (h *PredictionHandler) kind(c *gin.Context) (models.PredictionKind, bool) {
	kind, err := models.ParsePredictionKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return kind, true
}

func (h *PredictionHandler) writeError(c *gin.Context, err error, animalID string) {
	var invalid *features.InvalidFeaturesError
	switch {
	case errors.Is(err, prediction.ErrAnimalNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "animal not found", "animal_id": animalID})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid features", "field": invalid.Field})
	case errors.Is(err, prediction.ErrInvalidFeatures):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid features"})
	case errors.Is(err, prediction.ErrUnsupportedKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, prediction.ErrStorageUnavailable), errors.Is(err, prediction.ErrModelUnavailable):
		h.logger.Error("prediction dependency unavailable", zap.String("animal_id", animalID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		h.logger.Error("prediction failed", zap.String("animal_id", animalID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
	}
}

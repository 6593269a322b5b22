package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/features"
)

var (
	// ErrAnimalNotFound indicates the requested animal does not exist.
	ErrAnimalNotFound = features.ErrAnimalNotFound
	// ErrStorageUnavailable indicates data access or persistence failed.
	ErrStorageUnavailable = features.ErrStorageUnavailable
	// ErrInvalidFeatures indicates the computed features failed validation.
	ErrInvalidFeatures = errors.New("invalid features")
	// ErrUnsupportedKind indicates an unknown prediction kind.
	ErrUnsupportedKind = errors.New("unsupported prediction kind")
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	noRecordDays        = 999
	defaultBatchWorkers = 4
)

// FeatureSource builds the feature vector for an animal.
type FeatureSource interface {
	GetAnimalFeatures(ctx context.Context, animalID string) (*models.ProcessedFeatures, error)
}

// Store persists prediction audit rows and serves read queries.
type Store interface {
	InsertPrediction(ctx context.Context, result models.PredictionResult) error
	QueryPredictions(ctx context.Context, animalID string, limit int) ([]models.PredictionResult, error)
	QueryModelMetrics(ctx context.Context) ([]models.ModelMetric, error)
}

// Recorder receives prediction outcomes for observability.
type Recorder interface {
	ObservePrediction(kind models.PredictionKind, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObservePrediction(models.PredictionKind, string, time.Duration) {}

// Service runs the extract, validate, score, persist pipeline.
type Service struct {
	features  FeatureSource
	predictor Predictor
	store     Store
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	workers   int
}

// NewService wires the prediction pipeline. The predictor is fixed for the
// lifetime of the service.
func NewService(source FeatureSource, predictor Predictor, store Store, recorder Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		features:  source,
		predictor: predictor,
		store:     store,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
		workers:   defaultBatchWorkers,
	}
}

// Predict extracts features for the animal, scores them and persists the result.
// Nothing is written when any step before persistence fails.
func (s *Service) Predict(ctx context.Context, animalID string, kind models.PredictionKind) (*models.PredictionResult, error) {
	start := s.now()
	result, err := s.predict(ctx, animalID, kind)
	s.recorder.ObservePrediction(kind, outcomeOf(err), s.now().Sub(start))
	return result, err
}

func (s *Service) predict(ctx context.Context, animalID string, kind models.PredictionKind) (*models.PredictionResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	f, err := s.features.GetAnimalFeatures(ctx, animalID)
	if err != nil {
		return nil, err
	}

	if err := features.Validate(*f); err != nil {
		return nil, fmt.Errorf("animal %s: %w: %w", animalID, ErrInvalidFeatures, err)
	}

	snapshot := *f
	score, err := s.predictor.Predict(ctx, kind, snapshot)
	if err != nil {
		return nil, fmt.Errorf("score animal %s: %w", animalID, err)
	}

	result := models.PredictionResult{
		ID:              s.newID(),
		AnimalID:        animalID,
		Kind:            kind,
		PredictedValue:  normalizeValue(kind, score.Value),
		ConfidenceScore: clamp01(score.Confidence),
		ModelName:       score.ModelName,
		ModelVersion:    score.ModelVersion,
		Features:        snapshot,
		CreatedAt:       s.now().UTC(),
	}

	switch kind {
	case models.PredictionMilkYield:
		result.Factors = milkFactors(snapshot)
	case models.PredictionHealthRisk:
		result.RiskLevel = models.RiskLevelFor(result.PredictedValue)
		result.Recommendations = recommendations(snapshot, result.RiskLevel)
		result.Factors = riskFactors(snapshot)
	}

	if err := s.store.InsertPrediction(ctx, result); err != nil {
		return nil, fmt.Errorf("persist prediction for %s: %w: %w", animalID, ErrStorageUnavailable, err)
	}

	s.logger.Debug("prediction stored",
		zap.String("animal_id", animalID),
		zap.String("kind", string(kind)),
		zap.Float64("value", result.PredictedValue),
		zap.Float64("confidence", result.ConfidenceScore),
		zap.String("model", result.ModelName))

	return &result, nil
}

// BatchPredict runs Predict for each id. Failed ids are dropped; the surviving
// results keep the input order.
func (s *Service) BatchPredict(ctx context.Context, animalIDs []string, kind models.PredictionKind) []models.PredictionResult {
	slots := make([]*models.PredictionResult, len(animalIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range animalIDs {
		g.Go(func() error {
			result, err := s.Predict(gctx, id, kind)
			if err != nil {
				s.logger.Info("prediction skipped in batch",
					zap.String("animal_id", id),
					zap.String("kind", string(kind)),
					zap.Error(err))
				return nil
			}
			slots[i] = result
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.PredictionResult, 0, len(animalIDs))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// GetPredictionHistory returns the newest predictions for an animal.
func (s *Service) GetPredictionHistory(ctx context.Context, animalID string, limit int) ([]models.PredictionResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	results, err := s.store.QueryPredictions(ctx, animalID, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions for %s: %w: %w", animalID, ErrStorageUnavailable, err)
	}
	if results == nil {
		results = []models.PredictionResult{}
	}
	return results, nil
}

// GetModelMetrics is best effort: storage failures yield an empty list.
func (s *Service) GetModelMetrics(ctx context.Context) []models.ModelMetric {
	metrics, err := s.store.QueryModelMetrics(ctx)
	if err != nil {
		s.logger.Warn("model metrics unavailable", zap.Error(err))
		return []models.ModelMetric{}
	}
	if metrics == nil {
		return []models.ModelMetric{}
	}
	return metrics
}

// ModelStatus describes the predictor configured at start-up.
func (s *Service) ModelStatus() ModelInfo {
	return s.predictor.Info()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAnimalNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidFeatures):
		return "invalid_features"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrUnsupportedKind):
		return "unsupported_kind"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "error"
	}
}

func normalizeValue(kind models.PredictionKind, value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	if kind == models.PredictionHealthRisk {
		return clamp01(value)
	}
	return math.Max(0, value)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/pkg/clients/modelserver"
)

// ErrModelUnavailable indicates the trained model backend could not be reached.
var ErrModelUnavailable = errors.New("model unavailable")

// Score is what a predictor reports for one feature vector.
type Score struct {
	Value        float64
	Confidence   float64
	ModelName    string
	ModelVersion string
}

// ModelInfo describes the predictor selected at start-up.
type ModelInfo struct {
	Mode         string     `json:"mode"`
	ModelName    string     `json:"model_name"`
	ModelVersion string     `json:"model_version"`
	Fallback     *ModelInfo `json:"fallback,omitempty"`
}

// Predictor scores a feature vector for one prediction kind.
type Predictor interface {
	Predict(ctx context.Context, kind models.PredictionKind, f models.ProcessedFeatures) (Score, error)
	Info() ModelInfo
}

const (
	heuristicModelName    = "heuristic"
	heuristicModelVersion = "v1.0"
	milkConfidence        = 0.75
	riskConfidence        = 0.70
	noHistoryYield        = 20.0
	jitterSpan            = 0.10
)

// HeuristicPredictor is the rule-based stand-in used when no trained model is configured.
type HeuristicPredictor struct {
	// uniform draws from U(0,1) for the yield jitter.
	uniform func() float64
}

// NewHeuristicPredictor returns a heuristic predictor backed by math/rand/v2.
func NewHeuristicPredictor() *HeuristicPredictor {
	return &HeuristicPredictor{uniform: rand.Float64}
}

// Info implements Predictor.
func (p *HeuristicPredictor) Info() ModelInfo {
	return ModelInfo{Mode: "heuristic", ModelName: heuristicModelName, ModelVersion: heuristicModelVersion}
}

// Predict implements Predictor.
func (p *HeuristicPredictor) Predict(_ context.Context, kind models.PredictionKind, f models.ProcessedFeatures) (Score, error) {
	switch kind {
	case models.PredictionMilkYield:
		return Score{
			Value:        p.milkYield(f),
			Confidence:   milkConfidence,
			ModelName:    heuristicModelName,
			ModelVersion: heuristicModelVersion,
		}, nil
	case models.PredictionHealthRisk:
		return Score{
			Value:        healthRisk(f),
			Confidence:   riskConfidence,
			ModelName:    heuristicModelName,
			ModelVersion: heuristicModelVersion,
		}, nil
	default:
		return Score{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

func (p *HeuristicPredictor) milkYield(f models.ProcessedFeatures) float64 {
	predicted := f.AvgDailyYield30d
	if predicted == 0 {
		predicted = noHistoryYield
	}

	ageYears := float64(f.AgeDays) / 365
	if ageYears < 2 {
		predicted *= 0.7
	}
	if ageYears > 8 {
		predicted *= 0.8
	}

	predicted *= f.HealthStatusEncoded
	predicted *= f.SeasonalFactor

	if f.YieldTrend7d > 0 {
		predicted *= 1.05
	} else if f.YieldTrend7d < -0.5 {
		predicted *= 0.95
	}

	// bounded to ±5%
	predicted *= 1 + (p.uniform()-0.5)*jitterSpan

	return math.Max(0, predicted)
}

// healthRisk takes the maximum of the triggered rule floors.
func healthRisk(f models.ProcessedFeatures) float64 {
	risk := 0.2
	if f.HealthStatusEncoded < 0.5 {
		risk = 0.8
	} else if f.HealthStatusEncoded < 1 {
		risk = 0.5
	}

	if f.YieldTrend7d < -1 {
		risk = math.Max(risk, 0.6)
	}
	if f.DaysSinceLastRecord > 3 {
		risk = math.Max(risk, 0.4)
	}
	if float64(f.AgeDays)/365 > 10 {
		risk = math.Max(risk, 0.4)
	}

	return math.Min(1, risk)
}

// ModelClient is the remote model server contract.
type ModelClient interface {
	Predict(ctx context.Context, kind string, f models.ProcessedFeatures) (*modelserver.Prediction, error)
}

// TrainedModelPredictor scores through a trained model served over HTTP and
// degrades to its fallback when the model cannot be reached.
type TrainedModelPredictor struct {
	client       ModelClient
	modelName    string
	modelVersion string
	fallback     Predictor
	logger       *zap.Logger
}

// NewTrainedModelPredictor wires the remote model client. fallback may be nil,
// in which case model failures are returned to the caller.
func NewTrainedModelPredictor(client ModelClient, modelName, modelVersion string, fallback Predictor, logger *zap.Logger) *TrainedModelPredictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainedModelPredictor{
		client:       client,
		modelName:    modelName,
		modelVersion: modelVersion,
		fallback:     fallback,
		logger:       logger,
	}
}

// Info implements Predictor.
func (p *TrainedModelPredictor) Info() ModelInfo {
	info := ModelInfo{Mode: "trained", ModelName: p.modelName, ModelVersion: p.modelVersion}
	if p.fallback != nil {
		fb := p.fallback.Info()
		info.Fallback = &fb
	}
	return info
}

// Predict implements Predictor.
func (p *TrainedModelPredictor) Predict(ctx context.Context, kind models.PredictionKind, f models.ProcessedFeatures) (Score, error) {
	if !kind.Valid() {
		return Score{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	resp, err := p.client.Predict(ctx, string(kind), f)
	if err == nil {
		return p.toScore(resp), nil
	}

	err = fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	if p.fallback == nil {
		return Score{}, err
	}

	p.logger.Warn("model server unavailable, using fallback predictor",
		zap.String("animal_id", f.AnimalID),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return p.fallback.Predict(ctx, kind, f)
}

func (p *TrainedModelPredictor) toScore(resp *modelserver.Prediction) Score {
	score := Score{
		Value:        resp.PredictedValue,
		Confidence:   resp.ConfidenceScore,
		ModelName:    resp.ModelName,
		ModelVersion: resp.ModelVersion,
	}
	if score.ModelName == "" {
		score.ModelName = p.modelName
	}
	if score.ModelVersion == "" {
		score.ModelVersion = p.modelVersion
	}
	return score
}

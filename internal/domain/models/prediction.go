package models

import (
	"fmt"
	"strings"
	"time"
)

// PredictionKind enumerates the supported prediction targets.
type PredictionKind string

const (
	PredictionMilkYield  PredictionKind = "milk_yield"
	PredictionHealthRisk PredictionKind = "health_risk"
)

// Valid reports whether the kind is one we can score.
func (k PredictionKind) Valid() bool {
	return k == PredictionMilkYield || k == PredictionHealthRisk
}

// ParsePredictionKind accepts the canonical names plus the short route aliases.
func ParsePredictionKind(value string) (PredictionKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(PredictionMilkYield), "milk":
		return PredictionMilkYield, nil
	case string(PredictionHealthRisk), "disease", "health":
		return PredictionHealthRisk, nil
	default:
		return "", fmt.Errorf("unknown prediction kind %q", value)
	}
}

// RiskLevel buckets a health risk probability.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFor maps a risk score in [0,1] to its bucket.
func RiskLevelFor(risk float64) RiskLevel {
	switch {
	case risk < 0.2:
		return RiskLow
	case risk < 0.5:
		return RiskMedium
	case risk < 0.8:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// ProcessedFeatures is the fixed feature vector scored by a predictor.
type ProcessedFeatures struct {
	AnimalID            string  `bson:"animal_id" json:"animal_id"`
	AgeDays             int     `bson:"age_days" json:"age_days"`
	BreedEncoded        int     `bson:"breed_encoded" json:"breed_encoded"`
	Weight              float64 `bson:"weight" json:"weight"`
	AvgDailyYield7d     float64 `bson:"avg_daily_yield_7d" json:"avg_daily_yield_7d"`
	AvgDailyYield30d    float64 `bson:"avg_daily_yield_30d" json:"avg_daily_yield_30d"`
	YieldTrend7d        float64 `bson:"yield_trend_7d" json:"yield_trend_7d"`
	FatContentAvg       float64 `bson:"fat_content_avg" json:"fat_content_avg"`
	ProteinContentAvg   float64 `bson:"protein_content_avg" json:"protein_content_avg"`
	DaysSinceLastRecord int     `bson:"days_since_last_record" json:"days_since_last_record"`
	SeasonalFactor      float64 `bson:"seasonal_factor" json:"seasonal_factor"`
	HealthStatusEncoded float64 `bson:"health_status_encoded" json:"health_status_encoded"`
}

// PredictionResult is the audit row written for every successful prediction.
type PredictionResult struct {
	ID              string            `bson:"_id" json:"id"`
	AnimalID        string            `bson:"animal_id" json:"animal_id"`
	Kind            PredictionKind    `bson:"prediction_type" json:"prediction_type"`
	PredictedValue  float64           `bson:"predicted_value" json:"predicted_value"`
	ConfidenceScore float64           `bson:"confidence_score" json:"confidence_score"`
	ModelName       string            `bson:"model_name" json:"model_name"`
	ModelVersion    string            `bson:"model_version" json:"model_version"`
	Features        ProcessedFeatures `bson:"features" json:"features"`
	RiskLevel       RiskLevel         `bson:"risk_level,omitempty" json:"risk_level,omitempty"`
	Recommendations []string          `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
	Factors         map[string]string `bson:"factors,omitempty" json:"factors,omitempty"`
	CreatedAt       time.Time         `bson:"created_at" json:"created_at"`
}

// ModelMetric is a named evaluation metric written by the training pipeline.
type ModelMetric struct {
	ModelName    string    `bson:"model_name" json:"model_name"`
	ModelVersion string    `bson:"model_version" json:"model_version"`
	MetricName   string    `bson:"metric_name" json:"metric_name"`
	MetricValue  float64   `bson:"metric_value" json:"metric_value"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

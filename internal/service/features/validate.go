package features

import (
	"fmt"
	"math"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// InvalidFeaturesError names the first field that failed validation.
type InvalidFeaturesError struct {
	Field string
	Value float64
}

func (e *InvalidFeaturesError) Error() string {
	return fmt.Sprintf("feature %s out of range: %g", e.Field, e.Value)
}

// Validate checks a feature vector before it is scored. All range bounds are exclusive.
func Validate(f models.ProcessedFeatures) error {
	checks := []struct {
		field    string
		value    float64
		min, max float64
	}{
		{"age_days", float64(f.AgeDays), 0, 10000},
		{"weight", f.Weight, 200, 1000},
		{"fat_content_avg", f.FatContentAvg, 0, 10},
		{"protein_content_avg", f.ProteinContentAvg, 0, 10},
	}
	for _, c := range checks {
		if !(c.value > c.min && c.value < c.max) {
			return &InvalidFeaturesError{Field: c.field, Value: c.value}
		}
	}

	if !(f.AvgDailyYield7d >= 0) || math.IsInf(f.AvgDailyYield7d, 1) {
		return &InvalidFeaturesError{Field: "avg_daily_yield_7d", Value: f.AvgDailyYield7d}
	}
	if !(f.AvgDailyYield30d >= 0) || math.IsInf(f.AvgDailyYield30d, 1) {
		return &InvalidFeaturesError{Field: "avg_daily_yield_30d", Value: f.AvgDailyYield30d}
	}

	return nil
}

// ValidateFeatures reports whether the vector may be scored.
func ValidateFeatures(f models.ProcessedFeatures) bool {
	return Validate(f) == nil
}

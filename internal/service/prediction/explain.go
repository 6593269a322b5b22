package prediction

import (
	"fmt"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// milkFactors produces the explanation text shown next to a yield prediction.
func milkFactors(f models.ProcessedFeatures) map[string]string {
	factors := make(map[string]string, 5)

	switch {
	case f.HealthStatusEncoded >= 1:
		factors["health"] = "Healthy animal, no impact on yield"
	case f.HealthStatusEncoded >= 0.5:
		factors["health"] = "Recovering animal, yield reduced"
	default:
		factors["health"] = "Sick animal, yield significantly reduced"
	}

	ageYears := float64(f.AgeDays) / 365
	switch {
	case ageYears < 2:
		factors["maturity"] = "Immature animal, below peak production"
	case ageYears > 8:
		factors["maturity"] = "Aged animal, production declining"
	default:
		factors["maturity"] = "Age within productive range"
	}

	switch {
	case f.YieldTrend7d > 0:
		factors["trend"] = fmt.Sprintf("Yield rising %.2f L/day over the last week", f.YieldTrend7d)
	case f.YieldTrend7d < -0.5:
		factors["trend"] = fmt.Sprintf("Yield falling %.2f L/day over the last week", -f.YieldTrend7d)
	default:
		factors["trend"] = "Yield stable over the last week"
	}

	if f.AvgDailyYield30d == 0 {
		factors["history"] = "No milk records in the last 30 days, using herd baseline"
	} else {
		factors["history"] = fmt.Sprintf("30-day average %.2f L/day", f.AvgDailyYield30d)
	}

	factors["season"] = fmt.Sprintf("Seasonal factor %.3f", f.SeasonalFactor)
	return factors
}

// riskFactors lists the rules that raised the risk floor.
func riskFactors(f models.ProcessedFeatures) map[string]string {
	factors := make(map[string]string, 4)

	switch {
	case f.HealthStatusEncoded < 0.5:
		factors["health"] = "Animal currently recorded as sick"
	case f.HealthStatusEncoded < 1:
		factors["health"] = "Animal recovering from illness"
	default:
		factors["health"] = "Animal recorded as healthy"
	}
	if f.YieldTrend7d < -1 {
		factors["trend"] = fmt.Sprintf("Sharp yield drop of %.2f L/day", -f.YieldTrend7d)
	}
	if f.DaysSinceLastRecord > 3 {
		if f.DaysSinceLastRecord >= noRecordDays {
			factors["records"] = "No milk records in the last 30 days"
		} else {
			factors["records"] = fmt.Sprintf("Last milk record %d days ago", f.DaysSinceLastRecord)
		}
	}
	if float64(f.AgeDays)/365 > 10 {
		factors["age"] = "Animal older than 10 years"
	}
	return factors
}

func recommendations(f models.ProcessedFeatures, level models.RiskLevel) []string {
	if level == models.RiskLow {
		return []string{"Continue current management practices", "Regular health checks sufficient"}
	}

	var out []string
	if level == models.RiskHigh || level == models.RiskCritical {
		out = append(out, "Schedule immediate veterinary examination", "Increase monitoring frequency")
	}
	if f.HealthStatusEncoded < 1 {
		out = append(out, "Review treatment progress with the veterinarian")
	}
	if f.YieldTrend7d < -1 {
		out = append(out, "Investigate the recent drop in milk yield")
	}
	if f.DaysSinceLastRecord > 3 {
		out = append(out, "Resume daily milk recording for this animal")
	}
	if float64(f.AgeDays)/365 > 8 {
		out = append(out, "Consider increased health monitoring for older animal")
	}
	if len(out) == 0 {
		out = append(out, "Continue regular monitoring", "Maintain current health protocols")
	}
	return out
}

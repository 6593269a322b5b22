package features

import (
	"math"
	"time"
)

// DayOfYear returns the 1-based ordinal day of t within its year.
func DayOfYear(t time.Time) int {
	return t.YearDay()
}

// SeasonalFactor is a deterministic yearly sinusoid centred on 1.
func SeasonalFactor(t time.Time) float64 {
	return 1 + 0.2*math.Sin(2*math.Pi*float64(DayOfYear(t))/365)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// slope fits y = a + b*x with x = 0..n-1 by least squares and returns b.
func slope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	xMean := float64(n-1) / 2
	yMean := mean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

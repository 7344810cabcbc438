package dataprocessing

import (
	"math"
	"sort"
)

// tukeyFactor is the whisker multiplier for outlier bounds.
const tukeyFactor = 1.5

// Mean returns the arithmetic mean of values, or false when empty.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Quantile computes the q-th quantile of values using linear
// interpolation between order statistics (position q*(n-1)), matching
// the convention the cleaning policy was calibrated against: for
// [1000,2000,3000,4000,100000], Quantile(0.25) is 2000 and
// Quantile(0.75) is 4000.
func Quantile(values []float64, q float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0], true
	}
	if q >= 1 {
		return sorted[len(sorted)-1], true
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower], true
	}

	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower]), true
}

// TukeyBounds returns [Q1 - 1.5*IQR, Q3 + 1.5*IQR] over the population.
func TukeyBounds(values []float64) (lo, hi float64, ok bool) {
	q1, ok1 := Quantile(values, 0.25)
	q3, ok3 := Quantile(values, 0.75)
	if !ok1 || !ok3 {
		return 0, 0, false
	}
	iqr := q3 - q1
	return q1 - tukeyFactor*iqr, q3 + tukeyFactor*iqr, true
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

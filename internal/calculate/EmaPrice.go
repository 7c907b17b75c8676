package calculate

import "math"

// calculateEMASeries returns the exponential moving average of values with
// smoothing factor 2/(span+1). The average is seeded with the first value and
// has no warm-up correction, so every position is defined. NaN inputs are
// skipped until the first defined value.
func calculateEMASeries(values []float64, span int) []float64 {
	out := undefinedSeries(len(values))
	if span <= 0 {
		return out
	}

	multiplier := 2.0 / float64(span+1)
	ema := math.NaN()

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(ema) {
			ema = v
		} else {
			ema = (v-ema)*multiplier + ema
		}
		out[i] = ema
	}

	return out
}

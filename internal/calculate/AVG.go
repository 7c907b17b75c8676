package calculate

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// undefinedSeries returns a slice of n NaN values
func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// rollingMean calculates a simple moving average; the first window-1 entries are NaN
func rollingMean(values []float64, window int) []float64 {
	out := undefinedSeries(len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		out[i] = floats.Sum(values[i-window+1:i+1]) / float64(window)
	}

	return out
}

// shrinkingMean is a moving average that uses whatever history is available
// while fewer than window values exist
func shrinkingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		return undefinedSeries(len(values))
	}

	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		out[i] = floats.Sum(values[start:i+1]) / float64(i-start+1)
	}

	return out
}

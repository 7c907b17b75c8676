package calculate

import (
	"gonum.org/v1/gonum/stat"
)

// calculateBollingerBands calculates Bollinger Bands for every row.
// The band half-width is stdDev times the sample standard deviation (n-1)
// of the last period closes.
func calculateBollingerBands(closes []float64, period int, stdDev float64) ([]float64, []float64, []float64) {
	n := len(closes)
	upper := undefinedSeries(n)
	lower := undefinedSeries(n)

	if period < 2 {
		return upper, undefinedSeries(n), lower
	}

	middle := rollingMean(closes, period)
	for i := period - 1; i < n; i++ {
		sd := stat.StdDev(closes[i-period+1:i+1], nil)
		halfWidth := sd * stdDev

		upper[i] = middle[i] + halfWidth
		lower[i] = middle[i] - halfWidth
	}

	return upper, middle, lower
}

package calculate

import "math"

// calculateRSI computes the Relative Strength Index for every row.
//
// Average gain and loss are plain rolling means over period rows that shrink
// at the start of the series, so RSI is defined from the second row on. The
// first row has no price change and stays undefined. A window with no losses
// saturates at 100.
func calculateRSI(closes []float64, period int) []float64 {
	n := len(closes)
	if n == 0 {
		return nil
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := shrinkingMean(gains, period)
	avgLoss := shrinkingMean(losses, period)

	rsi := undefinedSeries(n)
	for i := 1; i < n; i++ {
		rsi[i] = rsiFromAverages(avgGain[i], avgLoss[i])
	}

	return rsi
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if math.IsNaN(avgGain) || math.IsNaN(avgLoss) {
		return math.NaN()
	}
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

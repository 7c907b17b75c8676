package calculate

import "math"

// calculateMACD returns the MACD line, its signal line and the histogram
func calculateMACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) ([]float64, []float64, []float64) {
	fastEMA := calculateEMASeries(closes, fastPeriod)
	slowEMA := calculateEMASeries(closes, slowPeriod)

	macdLine := undefinedSeries(len(closes))
	for i := range closes {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine := calculateEMASeries(macdLine, signalPeriod)

	histogram := undefinedSeries(len(closes))
	for i := range closes {
		if math.IsNaN(macdLine[i]) || math.IsNaN(signalLine[i]) {
			continue
		}
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return macdLine, signalLine, histogram
}

package calculate

import (
	"fmt"
	"math"

	"github.com/Alias1177/StockPredictor/models"
)

// IndicatorParams holds the windows used by the indicator engine
type IndicatorParams struct {
	MAWindows        []int
	RSIPeriod        int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	BBPeriod         int
	BBStdDev         float64
}

// DefaultIndicatorParams returns the standard daily-chart settings
func DefaultIndicatorParams() IndicatorParams {
	return IndicatorParams{
		MAWindows:        []int{5, 10, 20, 60},
		RSIPeriod:        14,
		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,
		BBPeriod:         20,
		BBStdDev:         2.0,
	}
}

// CalculateAllIndicators derives every indicator column from a price series.
// Short history yields undefined (NaN) entries, only an empty series is an error.
func CalculateAllIndicators(series models.PriceSeries, params IndicatorParams) (*models.IndicatorSet, error) {
	if series.Len() == 0 {
		return nil, models.ErrEmptySeries
	}

	closes := series.Closes()
	columns := make(map[string][]float64)

	// Moving averages
	for _, window := range params.MAWindows {
		columns[fmt.Sprintf("MA%d", window)] = rollingMean(closes, window)
	}

	// RSI
	columns[models.IndicatorRSI] = calculateRSI(closes, params.RSIPeriod)

	// MACD
	macd, signal, hist := calculateMACD(
		closes,
		params.MACDFastPeriod,
		params.MACDSlowPeriod,
		params.MACDSignalPeriod,
	)
	columns[models.IndicatorMACD] = macd
	columns[models.IndicatorMACDSignal] = signal
	columns[models.IndicatorMACDHistogram] = hist

	// Bollinger Bands
	upper, middle, lower := calculateBollingerBands(closes, params.BBPeriod, params.BBStdDev)
	columns[models.IndicatorBBUpper] = upper
	columns[models.IndicatorBBMiddle] = middle
	columns[models.IndicatorBBLower] = lower

	// Daily change
	columns[models.IndicatorDailyChange] = calculateDailyChangePct(closes)

	candles := make([]models.Candle, series.Len())
	copy(candles, series.Candles)

	return &models.IndicatorSet{
		Symbol:  series.Symbol,
		Candles: candles,
		Columns: columns,
	}, nil
}

// calculateDailyChangePct returns the close-to-close change in percent
func calculateDailyChangePct(closes []float64) []float64 {
	out := undefinedSeries(len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out[i] = (closes[i]/closes[i-1] - 1) * 100
	}
	return out
}

// LargeMoves returns the rows whose absolute daily change exceeds thresholdPct
func LargeMoves(set *models.IndicatorSet, thresholdPct float64) []models.IndicatorRow {
	var rows []models.IndicatorRow
	for i := 0; i < set.Len(); i++ {
		change := set.Get(models.IndicatorDailyChange, i)
		if math.IsNaN(change) || math.Abs(change) <= thresholdPct {
			continue
		}
		rows = append(rows, set.Row(i))
	}
	return rows
}

package analyze

import (
	"github.com/Alias1177/StockPredictor/models"
)

// SummarizeTrend builds the trend summary from the last two rows of the set.
// A single-row set is compared with itself and reports zero change.
func SummarizeTrend(set *models.IndicatorSet) (models.TrendSummary, error) {
	n := set.Len()
	if n == 0 {
		return models.TrendSummary{}, models.ErrEmptySeries
	}

	latest := set.Row(n - 1)
	prev := latest
	if n > 1 {
		prev = set.Row(n - 2)
	}

	return AnalyzeTrend(latest, prev), nil
}

// AnalyzeTrend derives the qualitative state from the latest and previous rows
func AnalyzeTrend(latest, prev models.IndicatorRow) models.TrendSummary {
	summary := models.TrendSummary{
		Date:         latest.Date,
		CurrentPrice: latest.Close,
		PriceChange:  latest.Close - prev.Close,
		MATrend:      maTrend(latest),
		RSIZone:      rsiZone(latest.RSI),
		MACDBias:     macdBias(latest),
	}

	if prev.Close != 0 {
		summary.PriceChangePct = summary.PriceChange / prev.Close * 100
	}

	return summary
}

// maTrend compares the 5 and 20 day averages
func maTrend(row models.IndicatorRow) string {
	if !row.MA5.Valid() || !row.MA20.Valid() {
		return ""
	}
	if row.MA5 > row.MA20 {
		return models.TrendUp
	}
	return models.TrendDown
}

func rsiZone(rsi models.NullFloat) string {
	switch {
	case !rsi.Valid():
		return ""
	case rsi > 70:
		return models.RSIOverbought
	case rsi < 30:
		return models.RSIOversold
	default:
		return models.RSINeutral
	}
}

func macdBias(row models.IndicatorRow) string {
	if !row.MACD.Valid() || !row.MACDSignal.Valid() {
		return ""
	}
	if row.MACD > row.MACDSignal {
		return models.MACDBullish
	}
	return models.MACDBearish
}

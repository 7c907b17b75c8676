package calculate

import (
	"errors"
	"math"
	"testing"
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/Alias1177/StockPredictor/models"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.8f, want %.8f (tol=%g)", label, got, want, tol)
	}
}

func seriesFromCloses(closes []float64) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return models.PriceSeries{Symbol: "TEST", Candles: candles}
}

func wavyCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i)*0.2
	}
	return closes
}

func TestCalculateAllIndicators_EmptySeries(t *testing.T) {
	_, err := CalculateAllIndicators(models.PriceSeries{Symbol: "TEST"}, DefaultIndicatorParams())
	if !errors.Is(err, models.ErrEmptySeries) {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestMA5_ShortSeriesUndefined(t *testing.T) {
	for n := 1; n < 5; n++ {
		set, err := CalculateAllIndicators(seriesFromCloses(wavyCloses(n)), DefaultIndicatorParams())
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		for i := 0; i < n; i++ {
			if !math.IsNaN(set.Get(models.IndicatorMA5, i)) {
				t.Errorf("n=%d row %d: MA5 should be undefined", n, i)
			}
		}
	}
}

func TestMA5_MatchesTalib(t *testing.T) {
	closes := wavyCloses(40)
	set, err := CalculateAllIndicators(seriesFromCloses(closes), DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reference := talib.Sma(closes, 5)
	for i := range closes {
		got := set.Get(models.IndicatorMA5, i)
		if i < 4 {
			if !math.IsNaN(got) {
				t.Errorf("row %d: MA5 should be undefined, got %f", i, got)
			}
			continue
		}
		assertClose(t, "MA5", got, reference[i], 1e-9)

		mean := (closes[i] + closes[i-1] + closes[i-2] + closes[i-3] + closes[i-4]) / 5
		assertClose(t, "MA5 mean", got, mean, 1e-9)
	}
}

func TestMA60_UndefinedUntilWindowFilled(t *testing.T) {
	closes := wavyCloses(70)
	set, err := CalculateAllIndicators(seriesFromCloses(closes), DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !math.IsNaN(set.Get(models.IndicatorMA60, 58)) {
		t.Errorf("MA60 at row 58 should be undefined")
	}
	if math.IsNaN(set.Get(models.IndicatorMA60, 59)) {
		t.Errorf("MA60 at row 59 should be defined")
	}
}

func TestRSI_Bounds(t *testing.T) {
	closes := wavyCloses(120)
	set, err := CalculateAllIndicators(seriesFromCloses(closes), DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !math.IsNaN(set.Get(models.IndicatorRSI, 0)) {
		t.Errorf("RSI at row 0 should be undefined")
	}
	for i := 1; i < len(closes); i++ {
		rsi := set.Get(models.IndicatorRSI, i)
		if math.IsNaN(rsi) || rsi < 0 || rsi > 100 {
			t.Errorf("row %d: RSI out of range: %f", i, rsi)
		}
	}
}

func TestRSI_Saturation(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{
			name:   "only gains",
			closes: []float64{10, 11, 12, 13, 14, 15},
			want:   100,
		},
		{
			name:   "flat prices have no loss",
			closes: []float64{10, 10, 10, 10},
			want:   100,
		},
		{
			name:   "only losses",
			closes: []float64{15, 14, 13, 12, 11, 10},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsi := calculateRSI(tt.closes, 14)
			last := rsi[len(rsi)-1]
			if math.IsNaN(last) || math.IsInf(last, 0) {
				t.Fatalf("RSI should be finite, got %f", last)
			}
			assertClose(t, "RSI", last, tt.want, 1e-12)
		})
	}
}

func TestRSI_ShrinkingWindow(t *testing.T) {
	// Row 2: gains {0, 2, 0}, losses {0, 0, 1} over 3 rows
	// avg gain = 2/3, avg loss = 1/3, RS = 2, RSI = 100 - 100/3
	rsi := calculateRSI([]float64{10, 12, 11}, 14)
	assertClose(t, "RSI row 2", rsi[2], 100-100.0/3, 1e-9)
}

func TestRSI_RollingWindowDropsOldChanges(t *testing.T) {
	// A single early loss falls out of a 3 period window
	closes := []float64{10, 9, 10, 11, 12}
	rsi := calculateRSI(closes, 3)
	assertClose(t, "RSI row 4", rsi[4], 100, 1e-12)
	if rsi[3] >= 100 {
		t.Errorf("RSI row 3 should still see the loss, got %f", rsi[3])
	}
}

func TestEMASeries_SeededWithFirstValue(t *testing.T) {
	// span 3: multiplier 0.5
	ema := calculateEMASeries([]float64{100, 102, 104, 103}, 3)
	expected := []float64{100, 101, 102.5, 102.75}
	for i := range expected {
		assertClose(t, "EMA", ema[i], expected[i], 1e-12)
	}
}

func TestMACD_HistogramIdentity(t *testing.T) {
	closes := wavyCloses(80)
	set, err := CalculateAllIndicators(seriesFromCloses(closes), DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range closes {
		macd := set.Get(models.IndicatorMACD, i)
		signal := set.Get(models.IndicatorMACDSignal, i)
		hist := set.Get(models.IndicatorMACDHistogram, i)
		if math.IsNaN(macd) || math.IsNaN(signal) {
			continue
		}
		if hist != macd-signal {
			t.Errorf("row %d: histogram %v != macd-signal %v", i, hist, macd-signal)
		}
	}
	if set.Get(models.IndicatorMACD, 0) != 0 {
		t.Errorf("MACD should start at zero when both EMAs are seeded with the first close")
	}
}

func TestBollinger_Symmetry(t *testing.T) {
	closes := wavyCloses(60)
	set, err := CalculateAllIndicators(seriesFromCloses(closes), DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range closes {
		upper := set.Get(models.IndicatorBBUpper, i)
		middle := set.Get(models.IndicatorBBMiddle, i)
		lower := set.Get(models.IndicatorBBLower, i)
		if i < 19 {
			if !math.IsNaN(upper) || !math.IsNaN(middle) || !math.IsNaN(lower) {
				t.Errorf("row %d: bands should be undefined", i)
			}
			continue
		}
		assertClose(t, "band symmetry", upper-middle, middle-lower, 1e-9)
		assertClose(t, "middle equals MA20", middle, set.Get(models.IndicatorMA20, i), 1e-12)
		if upper < middle || lower > middle {
			t.Errorf("row %d: bands out of order", i)
		}
	}
}

func TestBollinger_SampleStdDev(t *testing.T) {
	// closes 1..20: sample variance = 35, sd = sqrt(35)
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	upper, middle, lower := calculateBollingerBands(closes, 20, 2)
	assertClose(t, "middle", middle[19], 10.5, 1e-12)
	assertClose(t, "upper", upper[19], 10.5+2*math.Sqrt(35), 1e-9)
	assertClose(t, "lower", lower[19], 10.5-2*math.Sqrt(35), 1e-9)
}

func TestScenario_RisingTail(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10, 12, 14, 16, 18, 20}
	set, err := CalculateAllIndicators(seriesFromCloses(closes), DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := len(closes) - 1
	assertClose(t, "MA5 at last index", set.Get(models.IndicatorMA5, last), 16, 1e-12)

	prev := 0.0
	for i := 5; i <= last; i++ {
		rsi := set.Get(models.IndicatorRSI, i)
		if rsi < prev {
			t.Errorf("row %d: RSI should not fall during consecutive gains (%f < %f)", i, rsi, prev)
		}
		prev = rsi
	}
	assertClose(t, "final RSI", set.Get(models.IndicatorRSI, last), 100, 1e-12)
}

func TestScenario_StrictlyDecreasing(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	set, err := CalculateAllIndicators(seriesFromCloses(closes), DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := len(closes) - 1
	if set.Get(models.IndicatorMACD, last) >= set.Get(models.IndicatorMACDSignal, last) {
		t.Errorf("MACD should be below its signal line on a falling series")
	}
	assertClose(t, "RSI", set.Get(models.IndicatorRSI, last), 0, 1e-12)
}

func TestDailyChangeAndLargeMoves(t *testing.T) {
	closes := []float64{100, 101, 110, 109, 100}
	set, err := CalculateAllIndicators(seriesFromCloses(closes), DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !math.IsNaN(set.Get(models.IndicatorDailyChange, 0)) {
		t.Errorf("daily change at row 0 should be undefined")
	}
	assertClose(t, "daily change", set.Get(models.IndicatorDailyChange, 1), 1, 1e-9)

	moves := LargeMoves(set, 5)
	if len(moves) != 2 {
		t.Fatalf("expected 2 large moves, got %d", len(moves))
	}
	if moves[0].Close != 110 || moves[1].Close != 100 {
		t.Errorf("unexpected large move rows: %+v", moves)
	}
}

func TestCalculateAllIndicators_DoesNotAliasInput(t *testing.T) {
	series := seriesFromCloses(wavyCloses(10))
	set, err := CalculateAllIndicators(series, DefaultIndicatorParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set.Candles[0].Close = -1
	if series.Candles[0].Close == -1 {
		t.Errorf("indicator set must not share candle storage with the input series")
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/StockPredictor/internal/calculate"
	"github.com/Alias1177/StockPredictor/models"
)

type fakeSource struct {
	series     models.PriceSeries
	err        error
	symbol     string
	outputSize int
}

func (f *fakeSource) GetDailySeries(_ context.Context, symbol string, outputSize int) (models.PriceSeries, error) {
	f.symbol = symbol
	f.outputSize = outputSize
	if f.err != nil {
		return models.PriceSeries{}, f.err
	}
	return f.series, nil
}

type fakeArchive struct {
	saved []models.PriceSeries
	err   error
}

func (f *fakeArchive) SaveSeries(_ context.Context, series models.PriceSeries) error {
	f.saved = append(f.saved, series)
	return f.err
}

type fakeStatsSource struct {
	fakeSource
	fundamentals models.Fundamentals
	statsErr     error
}

func (f *fakeStatsSource) GetFundamentals(_ context.Context, _ string) (models.Fundamentals, error) {
	return f.fundamentals, f.statsErr
}

func decreasingSeries(symbol string, n int) models.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, n)
	for i := range candles {
		price := 100 - float64(i)
		candles[i] = models.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   price + 0.5,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
	}
	return models.PriceSeries{Symbol: symbol, Candles: candles}
}

func testOptions(forecast bool) Options {
	seed := int64(11)
	return Options{
		IndicatorParams: calculate.DefaultIndicatorParams(),
		LargeMovePct:    5,
		Lookback:        "1y",
		Forecast:        forecast,
		ForecastRequest: models.ForecastRequest{
			SequenceLength: 10,
			Horizon:        4,
			HiddenUnits:    []int{4},
			Epochs:         2,
			BatchSize:      8,
			LearningRate:   0.01,
			Seed:           &seed,
		},
	}
}

func TestAnalyze_Report(t *testing.T) {
	source := &fakeSource{series: decreasingSeries("AAPL", 30)}
	archive := &fakeArchive{}
	analyzer := NewAnalyzer(source, archive, testOptions(false))

	report, err := analyzer.Analyze(context.Background(), Request{Symbol: " aapl ", Lookback: "3mo"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if source.symbol != "AAPL" || source.outputSize != 63 {
		t.Errorf("source called with %q/%d, want AAPL/63", source.symbol, source.outputSize)
	}
	if len(archive.saved) != 1 {
		t.Errorf("series should be archived once, got %d", len(archive.saved))
	}
	if report.Symbol != "AAPL" || len(report.Indicators) != 30 {
		t.Errorf("unexpected report header: %s with %d rows", report.Symbol, len(report.Indicators))
	}
	if report.Trend.MACDBias != models.MACDBearish {
		t.Errorf("MACDBias = %q, want bearish", report.Trend.MACDBias)
	}
	if len(report.Signals) == 0 || report.Signals[0] == models.NoClearSignal {
		t.Errorf("expected signals for a falling series, got %v", report.Signals)
	}
	if report.Forecast != nil {
		t.Error("forecast should be skipped when disabled")
	}
}

func TestAnalyze_Forecast(t *testing.T) {
	source := &fakeSource{series: decreasingSeries("MSFT", 40)}
	analyzer := NewAnalyzer(source, nil, testOptions(false))

	enabled := true
	report, err := analyzer.Analyze(context.Background(), Request{Symbol: "MSFT", Forecast: &enabled, Horizon: 6})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.Forecast == nil {
		t.Fatal("expected a forecast")
	}
	if len(report.Forecast.Values) != 6 {
		t.Errorf("forecast length = %d, want 6", len(report.Forecast.Values))
	}
	if report.Forecast.Seed != 11 {
		t.Errorf("forecast seed = %d, want 11", report.Forecast.Seed)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	fetchErr := &models.DataFetchError{Symbol: "NOPE", Err: errors.New("symbol not found")}
	unsorted := decreasingSeries("AAPL", 5)
	unsorted.Candles[3].Date = unsorted.Candles[1].Date

	tests := []struct {
		name    string
		source  *fakeSource
		opts    Options
		req     Request
		check   func(t *testing.T, err error)
		fetched bool
	}{
		{
			name:   "blank symbol",
			source: &fakeSource{},
			opts:   testOptions(false),
			req:    Request{Symbol: "  "},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, models.ErrInvalidSymbol) {
					t.Errorf("expected ErrInvalidSymbol, got %v", err)
				}
			},
		},
		{
			name:   "bad lookback",
			source: &fakeSource{},
			opts:   testOptions(false),
			req:    Request{Symbol: "AAPL", Lookback: "decade"},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, models.ErrInvalidLookback) {
					t.Errorf("expected ErrInvalidLookback, got %v", err)
				}
			},
		},
		{
			name:   "fetch error surfaces unchanged",
			source: &fakeSource{err: fetchErr},
			opts:   testOptions(false),
			req:    Request{Symbol: "NOPE"},
			check: func(t *testing.T, err error) {
				if err != fetchErr {
					t.Errorf("expected the source error itself, got %v", err)
				}
			},
			fetched: true,
		},
		{
			name:   "out of order bars",
			source: &fakeSource{series: unsorted},
			opts:   testOptions(false),
			req:    Request{Symbol: "AAPL"},
			check: func(t *testing.T, err error) {
				var de *models.DataFetchError
				if !errors.As(err, &de) {
					t.Errorf("expected DataFetchError, got %v", err)
				}
			},
			fetched: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(tt.source, nil, tt.opts)
			report, err := analyzer.Analyze(context.Background(), tt.req)
			if report != nil {
				t.Errorf("expected no report on error, got %+v", report)
			}
			tt.check(t, err)
			if fetched := tt.source.symbol != ""; fetched != tt.fetched {
				t.Errorf("source fetched = %v, want %v", fetched, tt.fetched)
			}
		})
	}
}

func TestAnalyze_ArchiveFailureIsNotFatal(t *testing.T) {
	source := &fakeSource{series: decreasingSeries("AAPL", 25)}
	archive := &fakeArchive{err: errors.New("connection refused")}
	analyzer := NewAnalyzer(source, archive, testOptions(false))

	if _, err := analyzer.Analyze(context.Background(), Request{Symbol: "AAPL"}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
}

func TestAnalyze_ShortHistorySkipsForecast(t *testing.T) {
	// one month of bars is shorter than the default 30 day window
	source := &fakeSource{series: decreasingSeries("AAPL", 21)}
	opts := testOptions(true)
	opts.ForecastRequest = models.ForecastRequest{}
	analyzer := NewAnalyzer(source, nil, opts)

	report, err := analyzer.Analyze(context.Background(), Request{Symbol: "aapl", Lookback: "1mo"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if source.outputSize != 21 {
		t.Errorf("outputSize = %d, want 21", source.outputSize)
	}
	if len(report.Indicators) != 21 || len(report.Signals) == 0 {
		t.Errorf("indicators and signals should survive: %d rows, %v", len(report.Indicators), report.Signals)
	}
	if report.Forecast != nil {
		t.Error("forecast should be skipped")
	}
	if !strings.Contains(report.ForecastError, "insufficient history") {
		t.Errorf("ForecastError = %q", report.ForecastError)
	}
}

func TestAnalyze_InvalidForecastRequestFails(t *testing.T) {
	source := &fakeSource{series: decreasingSeries("AAPL", 40)}
	opts := testOptions(true)
	opts.ForecastRequest.Horizon = 1000
	analyzer := NewAnalyzer(source, nil, opts)

	report, err := analyzer.Analyze(context.Background(), Request{Symbol: "AAPL"})
	if err == nil || report != nil {
		t.Fatalf("expected a validation failure, got report=%v err=%v", report, err)
	}
}

func TestAnalyze_Fundamentals(t *testing.T) {
	tests := []struct {
		name    string
		source  *fakeStatsSource
		wantNil bool
		wantCap float64
	}{
		{
			name: "available",
			source: &fakeStatsSource{
				fakeSource:   fakeSource{series: decreasingSeries("AAPL", 25)},
				fundamentals: models.Fundamentals{MarketCap: 2.9e12, TrailingPE: 30.1},
			},
			wantCap: 2.9e12,
		},
		{
			name: "lookup failure is not fatal",
			source: &fakeStatsSource{
				fakeSource: fakeSource{series: decreasingSeries("AAPL", 25)},
				statsErr:   errors.New("plan does not include statistics"),
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(tt.source, nil, testOptions(false))
			report, err := analyzer.Analyze(context.Background(), Request{Symbol: "AAPL"})
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if tt.wantNil {
				if report.Fundamentals != nil {
					t.Errorf("expected no fundamentals, got %+v", report.Fundamentals)
				}
				return
			}
			if report.Fundamentals == nil || report.Fundamentals.MarketCap.Float() != tt.wantCap {
				t.Errorf("unexpected fundamentals %+v", report.Fundamentals)
			}
		})
	}
}

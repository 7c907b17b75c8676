package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/StockPredictor/internal/analysis/prediction"
	"github.com/Alias1177/StockPredictor/internal/analyze"
	"github.com/Alias1177/StockPredictor/internal/calculate"
	"github.com/Alias1177/StockPredictor/internal/metrics"
	"github.com/Alias1177/StockPredictor/models"
)

// SeriesArchive keeps a copy of fetched bars
type SeriesArchive interface {
	SaveSeries(ctx context.Context, series models.PriceSeries) error
}

// Options holds the analysis defaults
type Options struct {
	IndicatorParams calculate.IndicatorParams
	LargeMovePct    float64
	Lookback        string
	Forecast        bool
	ForecastRequest models.ForecastRequest
}

// Request is one analysis call. Zero values fall back to Options.
type Request struct {
	Symbol   string
	Lookback string
	Forecast *bool
	Horizon  int
}

// Analyzer fetches a series and runs every analysis over it
type Analyzer struct {
	source  models.SeriesSource
	archive SeriesArchive
	opts    Options
	logger  zerolog.Logger
}

// NewAnalyzer creates an analyzer. archive may be nil.
func NewAnalyzer(source models.SeriesSource, archive SeriesArchive, opts Options) *Analyzer {
	return &Analyzer{
		source:  source,
		archive: archive,
		opts:    opts,
		logger:  log.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze produces a full report for one ticker
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*models.Report, error) {
	report, err := a.analyze(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.AnalysisRequests.WithLabelValues(outcome).Inc()
	return report, err
}

func (a *Analyzer) analyze(ctx context.Context, req Request) (*models.Report, error) {
	symbol := models.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, models.ErrInvalidSymbol
	}

	lookback := req.Lookback
	if lookback == "" {
		lookback = a.opts.Lookback
	}
	outputSize, err := models.LookbackToOutputSize(lookback)
	if err != nil {
		return nil, err
	}

	logger := a.logger.With().Str("symbol", symbol).Str("lookback", lookback).Logger()

	// 1. Fetch market data
	start := time.Now()
	series, err := a.source.GetDailySeries(ctx, symbol, outputSize)
	if err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, &models.DataFetchError{Symbol: symbol, Err: err}
	}
	observe("fetch", start)
	logger.Info().Int("bars", series.Len()).Msg("Fetched price history")

	if a.archive != nil {
		if err := a.archive.SaveSeries(ctx, series); err != nil {
			logger.Warn().Err(err).Msg("Failed to archive price history")
		}
	}

	// 2. Calculate technical indicators
	start = time.Now()
	set, err := calculate.CalculateAllIndicators(series, a.opts.IndicatorParams)
	if err != nil {
		return nil, err
	}
	observe("indicators", start)

	// 3. Trend and signals from the latest row
	trend, err := analyze.SummarizeTrend(set)
	if err != nil {
		return nil, err
	}
	latest, _ := set.Latest()
	fired := analyze.EvaluateSignals(latest)
	for _, s := range fired {
		metrics.SignalsEmitted.WithLabelValues(s.Class).Inc()
	}

	report := &models.Report{
		Symbol:      symbol,
		GeneratedAt: time.Now().UTC(),
		Indicators:  set.Rows(),
		LargeMoves:  calculate.LargeMoves(set, a.opts.LargeMovePct),
		Trend:       trend,
		Signals:     analyze.GenerateSignals(latest),
	}

	if fs, ok := a.source.(models.FundamentalsSource); ok {
		fundamentals, err := fs.GetFundamentals(ctx, symbol)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to fetch fundamentals")
		} else {
			report.Fundamentals = &fundamentals
		}
	}

	logger.Info().
		Float64("price", trend.CurrentPrice).
		Str("ma_trend", trend.MATrend).
		Str("rsi_zone", trend.RSIZone).
		Str("macd_bias", trend.MACDBias).
		Int("signals", len(fired)).
		Msg("Analysis completed")

	// 4. Optional forecast
	if !a.wantForecast(req) {
		return report, nil
	}

	forecastReq := a.opts.ForecastRequest
	if req.Horizon > 0 {
		forecastReq.Horizon = req.Horizon
	}

	start = time.Now()
	forecast, err := prediction.Forecast(series.Closes(), forecastReq)
	var insufficient *models.InsufficientHistoryError
	if errors.As(err, &insufficient) {
		// The rest of the report stands on its own
		logger.Warn().Err(err).Msg("Skipping forecast")
		report.ForecastError = err.Error()
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("forecasting %s: %w", symbol, err)
	}
	observe("forecast", start)
	metrics.ForecastTrainingLoss.Set(forecast.TrainingLoss)

	report.Forecast = forecast
	return report, nil
}

func (a *Analyzer) wantForecast(req Request) bool {
	if req.Forecast != nil {
		return *req.Forecast
	}
	return a.opts.Forecast
}

func observe(stage string, start time.Time) {
	metrics.AnalysisDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

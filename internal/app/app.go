package app

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/StockPredictor/internal/api/twelvedata"
	"github.com/Alias1177/StockPredictor/internal/config"
	"github.com/Alias1177/StockPredictor/internal/database"
	"github.com/Alias1177/StockPredictor/internal/metrics"
	"github.com/Alias1177/StockPredictor/internal/service"
	"github.com/Alias1177/StockPredictor/models"
)

// SetupLogging configures the global logger
func SetupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// PrintConfig outputs the current configuration
func PrintConfig(cfg *config.Config) {
	log.Info().
		Str("Symbol", cfg.Symbol).
		Str("Lookback", cfg.Lookback).
		Int("RSIPeriod", cfg.RSIPeriod).
		Int("MACDFastPeriod", cfg.MACDFastPeriod).
		Int("MACDSlowPeriod", cfg.MACDSlowPeriod).
		Int("MACDSignalPeriod", cfg.MACDSignalPeriod).
		Int("BBPeriod", cfg.BBPeriod).
		Float64("BBStdDev", cfg.BBStdDev).
		Bool("EnableForecast", cfg.EnableForecast).
		Int("SequenceLength", cfg.SequenceLength).
		Int("ForecastHorizon", cfg.ForecastHorizon).
		Ints("LSTMUnits", cfg.LSTMUnits).
		Int("Epochs", cfg.Epochs).
		Bool("Database", cfg.DatabaseEnabled()).
		Msg("Configuration loaded")
}

// Deps are the long-lived collaborators shared by the entry points
type Deps struct {
	Analyzer *service.Analyzer
	DB       *database.DB
}

// Close releases the database connection if one was opened
func (d *Deps) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}

// Build wires the analyzer. With offline set, bars are read from the price
// store instead of the market data API.
func Build(ctx context.Context, cfg *config.Config, offline bool) (*Deps, error) {
	metrics.Register()

	deps := &Deps{}
	if cfg.DatabaseEnabled() {
		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		deps.DB = db
	}

	var source models.SeriesSource
	var archive service.SeriesArchive
	switch {
	case offline:
		if deps.DB == nil {
			return nil, errors.New("offline mode needs a configured price store (DB_HOST)")
		}
		source = deps.DB
	default:
		source = twelvedata.NewClient(twelvedata.ClientOptions{
			APIKey:         cfg.TwelveAPIKey,
			BaseURL:        cfg.TwelveBaseURL,
			RequestTimeout: cfg.Timeout(),
			RequestsPerSec: cfg.RequestsPerSec,
		})
		if deps.DB != nil {
			archive = deps.DB
		}
	}

	deps.Analyzer = service.NewAnalyzer(source, archive, service.Options{
		IndicatorParams: cfg.IndicatorParams(),
		LargeMovePct:    cfg.LargeMovePct,
		Lookback:        cfg.Lookback,
		Forecast:        cfg.EnableForecast,
		ForecastRequest: cfg.ForecastRequest(),
	})

	return deps, nil
}

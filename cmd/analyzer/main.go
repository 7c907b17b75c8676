package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/StockPredictor/internal/app"
	"github.com/Alias1177/StockPredictor/internal/config"
	"github.com/Alias1177/StockPredictor/internal/report"
	"github.com/Alias1177/StockPredictor/internal/service"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	symbol := flag.String("symbol", cfg.Symbol, "ticker to analyze")
	lookback := flag.String("lookback", cfg.Lookback, "history to fetch: 1mo, 3mo, 6mo, 1y, 2y, 5y or <n>d")
	horizon := flag.Int("horizon", cfg.ForecastHorizon, "days to forecast")
	forecast := flag.Bool("forecast", cfg.EnableForecast, "train the LSTM and forecast prices")
	offline := flag.Bool("offline", false, "read price history from the database instead of the API")
	flag.Parse()

	// 2. Configure logging
	app.SetupLogging(cfg.LogLevel)
	log.Info().Msg("Starting Stock Analyzer")
	app.PrintConfig(cfg)

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire dependencies
	deps, err := app.Build(ctx, cfg, *offline)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer deps.Close()

	// 4. Run analysis
	result, err := deps.Analyzer.Analyze(ctx, service.Request{
		Symbol:   *symbol,
		Lookback: *lookback,
		Forecast: forecast,
		Horizon:  *horizon,
	})
	if err != nil {
		log.Error().Err(err).Str("symbol", *symbol).Msg("Analysis failed")
		os.Exit(1)
	}

	fmt.Println(report.FormatText(result))
}

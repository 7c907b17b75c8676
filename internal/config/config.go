package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/StockPredictor/internal/calculate"
	"github.com/Alias1177/StockPredictor/internal/database"
	"github.com/Alias1177/StockPredictor/models"
)

// Config holds all application configuration
type Config struct {
	TwelveAPIKey   string  `env:"TWELVE_API_KEY"`
	TwelveBaseURL  string  `env:"TWELVE_BASE_URL" envDefault:"https://api.twelvedata.com"`
	Symbol         string  `env:"SYMBOL" envDefault:"AAPL"`
	Lookback       string  `env:"LOOKBACK" envDefault:"1y"`
	LogLevel       string  `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout int     `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec int     `env:"REQUESTS_PER_SEC" envDefault:"5"`
	LargeMovePct   float64 `env:"LARGE_MOVE_PCT" envDefault:"5"`

	RSIPeriod        int     `env:"RSI_PERIOD" envDefault:"14"`
	MACDFastPeriod   int     `env:"MACD_FAST_PERIOD" envDefault:"12"`
	MACDSlowPeriod   int     `env:"MACD_SLOW_PERIOD" envDefault:"26"`
	MACDSignalPeriod int     `env:"MACD_SIGNAL_PERIOD" envDefault:"9"`
	BBPeriod         int     `env:"BB_PERIOD" envDefault:"20"`
	BBStdDev         float64 `env:"BB_STD_DEV" envDefault:"2.0"`

	EnableForecast  bool    `env:"ENABLE_FORECAST" envDefault:"true"`
	SequenceLength  int     `env:"SEQUENCE_LENGTH" envDefault:"30"`
	ForecastHorizon int     `env:"FORECAST_HORIZON" envDefault:"10"`
	LSTMUnits       []int   `env:"LSTM_UNITS" envDefault:"50,50"`
	Epochs          int     `env:"EPOCHS" envDefault:"20"`
	BatchSize       int     `env:"BATCH_SIZE" envDefault:"32"`
	LearningRate    float64 `env:"LEARNING_RATE" envDefault:"0.001"`
	ForecastSeed    *int64  `env:"FORECAST_SEED"`

	DB database.ConnectionParams

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	HTTPAddr         string `env:"HTTP_ADDR" envDefault:":8080"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	// Load values from environment variables
	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.TwelveBaseURL = getEnvWithDefault("TWELVE_BASE_URL", "https://api.twelvedata.com")
	cfg.Symbol = models.NormalizeSymbol(getEnvWithDefault("SYMBOL", "AAPL"))
	cfg.Lookback = getEnvWithDefault("LOOKBACK", "1y")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.LargeMovePct = getEnvFloatWithDefault("LARGE_MOVE_PCT", 5)

	cfg.RSIPeriod = getEnvIntWithDefault("RSI_PERIOD", 14)
	cfg.MACDFastPeriod = getEnvIntWithDefault("MACD_FAST_PERIOD", 12)
	cfg.MACDSlowPeriod = getEnvIntWithDefault("MACD_SLOW_PERIOD", 26)
	cfg.MACDSignalPeriod = getEnvIntWithDefault("MACD_SIGNAL_PERIOD", 9)
	cfg.BBPeriod = getEnvIntWithDefault("BB_PERIOD", 20)
	cfg.BBStdDev = getEnvFloatWithDefault("BB_STD_DEV", 2.0)

	cfg.EnableForecast = getEnvBoolWithDefault("ENABLE_FORECAST", true)
	cfg.SequenceLength = getEnvIntWithDefault("SEQUENCE_LENGTH", 30)
	cfg.ForecastHorizon = getEnvIntWithDefault("FORECAST_HORIZON", 10)
	cfg.Epochs = getEnvIntWithDefault("EPOCHS", 20)
	cfg.BatchSize = getEnvIntWithDefault("BATCH_SIZE", 32)
	cfg.LearningRate = getEnvFloatWithDefault("LEARNING_RATE", 0.001)

	units, err := parseIntList(getEnvWithDefault("LSTM_UNITS", "50,50"))
	if err != nil {
		return nil, fmt.Errorf("LSTM_UNITS: %w", err)
	}
	cfg.LSTMUnits = units

	if value := os.Getenv("FORECAST_SEED"); value != "" {
		seed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("FORECAST_SEED: %w", err)
		}
		cfg.ForecastSeed = &seed
	}

	cfg.DB = database.ConnectionParams{
		Host:     os.Getenv("DB_HOST"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		User:     getEnvWithDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnvWithDefault("DB_NAME", "stocks"),
		SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
	}

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", ":8080")

	if _, err := models.LookbackToOutputSize(cfg.Lookback); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DatabaseEnabled reports whether a price store is configured
func (c *Config) DatabaseEnabled() bool {
	return c.DB.Host != ""
}

// Timeout returns the request timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// IndicatorParams converts the indicator settings
func (c *Config) IndicatorParams() calculate.IndicatorParams {
	params := calculate.DefaultIndicatorParams()
	params.RSIPeriod = c.RSIPeriod
	params.MACDFastPeriod = c.MACDFastPeriod
	params.MACDSlowPeriod = c.MACDSlowPeriod
	params.MACDSignalPeriod = c.MACDSignalPeriod
	params.BBPeriod = c.BBPeriod
	params.BBStdDev = c.BBStdDev
	return params
}

// ForecastRequest converts the forecasting settings
func (c *Config) ForecastRequest() models.ForecastRequest {
	units := make([]int, len(c.LSTMUnits))
	copy(units, c.LSTMUnits)

	return models.ForecastRequest{
		SequenceLength: c.SequenceLength,
		Horizon:        c.ForecastHorizon,
		HiddenUnits:    units,
		Epochs:         c.Epochs,
		BatchSize:      c.BatchSize,
		LearningRate:   c.LearningRate,
		Seed:           c.ForecastSeed,
	}
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func parseIntList(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

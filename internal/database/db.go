package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/StockPredictor/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the lib/pq connection string
func (p ConnectionParams) DSN() string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, sslMode,
	)
}

// New creates a new database connection
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	// Create tables if they don't exist
	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &DB{
		DB:     db,
		logger: log.With().Str("component", "price_store").Logger(),
	}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS price_bars (
			symbol TEXT NOT NULL,
			bar_date DATE NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume BIGINT NOT NULL DEFAULT 0,
			fetched_at TIMESTAMP NOT NULL,
			PRIMARY KEY (symbol, bar_date)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_preferences (
			user_id BIGINT PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			symbol TEXT NOT NULL,
			lookback TEXT NOT NULL,
			last_requested TIMESTAMP NOT NULL
		)
	`)
	return err
}

// SaveSeries upserts every bar of the series in one transaction
func (db *DB) SaveSeries(ctx context.Context, series models.PriceSeries) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_bars (symbol, bar_date, open, high, low, close, volume, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, bar_date)
		DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			fetched_at = EXCLUDED.fetched_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range series.Candles {
		if _, err := stmt.ExecContext(ctx,
			series.Symbol, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume, now); err != nil {
			return fmt.Errorf("saving bar %s %s: %w", series.Symbol, c.Date.Format(models.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.logger.Debug().Str("symbol", series.Symbol).Int("bars", series.Len()).Msg("Saved price bars")
	return nil
}

// GetDailySeries returns the latest outputSize stored bars, oldest first.
// It lets the store stand in for the market data API.
func (db *DB) GetDailySeries(ctx context.Context, symbol string, outputSize int) (models.PriceSeries, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT bar_date, open, high, low, close, volume
		FROM (
			SELECT bar_date, open, high, low, close, volume
			FROM price_bars
			WHERE symbol = $1
			ORDER BY bar_date DESC
			LIMIT $2
		) recent
		ORDER BY bar_date ASC
	`, symbol, outputSize)
	if err != nil {
		return models.PriceSeries{}, &models.DataFetchError{Symbol: symbol, Err: err}
	}
	defer rows.Close()

	series := models.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return models.PriceSeries{}, &models.DataFetchError{Symbol: symbol, Err: err}
		}
		series.Candles = append(series.Candles, c)
	}
	if err := rows.Err(); err != nil {
		return models.PriceSeries{}, &models.DataFetchError{Symbol: symbol, Err: err}
	}

	if series.Len() == 0 {
		return models.PriceSeries{}, &models.DataFetchError{Symbol: symbol, Err: models.ErrEmptySeries}
	}

	return series, nil
}

// SaveUserPreference stores the last ticker a bot user asked for
func (db *DB) SaveUserPreference(ctx context.Context, pref models.UserPreference) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, chat_id, symbol, lookback, last_requested)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id)
		DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			symbol = EXCLUDED.symbol,
			lookback = EXCLUDED.lookback,
			last_requested = EXCLUDED.last_requested
	`, pref.UserID, pref.ChatID, pref.Symbol, pref.Lookback, pref.LastRequested)

	return err
}

// GetUserPreference retrieves a user's saved settings, nil if none
func (db *DB) GetUserPreference(ctx context.Context, userID int64) (*models.UserPreference, error) {
	var pref models.UserPreference

	err := db.QueryRowContext(ctx, `
		SELECT user_id, chat_id, symbol, lookback, last_requested
		FROM user_preferences
		WHERE user_id = $1
	`, userID).Scan(&pref.UserID, &pref.ChatID, &pref.Symbol, &pref.Lookback, &pref.LastRequested)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &pref, nil
}

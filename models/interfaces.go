package models

import "context"

// SeriesSource supplies daily price history for a ticker
type SeriesSource interface {
	GetDailySeries(ctx context.Context, symbol string, outputSize int) (PriceSeries, error)
}

// FundamentalsSource supplies valuation metrics for a ticker
type FundamentalsSource interface {
	GetFundamentals(ctx context.Context, symbol string) (Fundamentals, error)
}

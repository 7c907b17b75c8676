package models

import (
	"errors"
	"fmt"
)

// ErrEmptySeries is returned when a computation receives no rows at all
var ErrEmptySeries = errors.New("price series is empty")

// ErrInvalidLookback is returned for lookback periods that cannot be parsed
var ErrInvalidLookback = errors.New("invalid lookback")

// ErrInvalidSymbol is returned for a blank ticker
var ErrInvalidSymbol = errors.New("invalid symbol")

// InsufficientHistoryError reports that a stage needs more rows than available
type InsufficientHistoryError struct {
	Stage     string
	Required  int
	Available int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: need more than %d observations, have %d",
		e.Stage, e.Required, e.Available)
}

// DataFetchError wraps failures of the market data source
type DataFetchError struct {
	Symbol string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetching data for %s: %v", e.Symbol, e.Err)
}

// Unwrap returns the underlying error
func (e *DataFetchError) Unwrap() error {
	return e.Err
}

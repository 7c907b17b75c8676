package models

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Candle represents a single daily price bar
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is the ordered daily history of one instrument
type PriceSeries struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
}

// Len returns the number of bars in the series
func (s PriceSeries) Len() int {
	return len(s.Candles)
}

// Closes extracts the close column
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// Validate checks that dates are strictly increasing
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].Date.After(s.Candles[i-1].Date) {
			return fmt.Errorf("series %s: bar %d (%s) is not after bar %d (%s)",
				s.Symbol, i, s.Candles[i].Date.Format(DateLayout),
				i-1, s.Candles[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

// DateLayout is the layout used for daily bar dates
const DateLayout = "2006-01-02"

// Indicator column names
const (
	IndicatorMA5           = "MA5"
	IndicatorMA10          = "MA10"
	IndicatorMA20          = "MA20"
	IndicatorMA60          = "MA60"
	IndicatorRSI           = "RSI"
	IndicatorMACD          = "MACD"
	IndicatorMACDSignal    = "MACD_Signal"
	IndicatorMACDHistogram = "MACD_Histogram"
	IndicatorBBUpper       = "BB_Upper"
	IndicatorBBMiddle      = "BB_Middle"
	IndicatorBBLower       = "BB_Lower"
	IndicatorDailyChange   = "DailyChangePct"
)

// NullFloat is an indicator value where NaN means "undefined".
// It marshals to JSON null when undefined.
type NullFloat float64

// Undefined returns the undefined value
func Undefined() NullFloat {
	return NullFloat(math.NaN())
}

// Valid reports whether the value is defined
func (f NullFloat) Valid() bool {
	return !math.IsNaN(float64(f))
}

// Float returns the raw value (NaN if undefined)
func (f NullFloat) Float() float64 {
	return float64(f)
}

// MarshalJSON implements json.Marshaler
func (f NullFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid() || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(f), 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (f *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Undefined()
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("parsing indicator value: %w", err)
	}
	*f = NullFloat(v)
	return nil
}

// IndicatorSet holds indicator columns aligned to the dates of a PriceSeries.
// Undefined entries are NaN.
type IndicatorSet struct {
	Symbol  string
	Candles []Candle
	Columns map[string][]float64
}

// Len returns the number of rows
func (s *IndicatorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}

// Get returns the value of a column at row i, NaN if the column or row is missing
func (s *IndicatorSet) Get(name string, i int) float64 {
	col, ok := s.Columns[name]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Row builds the tabular view of row i
func (s *IndicatorSet) Row(i int) IndicatorRow {
	c := s.Candles[i]
	v := func(name string) NullFloat { return NullFloat(s.Get(name, i)) }

	return IndicatorRow{
		Date:           c.Date,
		Open:           c.Open,
		High:           c.High,
		Low:            c.Low,
		Close:          c.Close,
		Volume:         c.Volume,
		DailyChangePct: v(IndicatorDailyChange),
		MA5:            v(IndicatorMA5),
		MA10:           v(IndicatorMA10),
		MA20:           v(IndicatorMA20),
		MA60:           v(IndicatorMA60),
		RSI:            v(IndicatorRSI),
		MACD:           v(IndicatorMACD),
		MACDSignal:     v(IndicatorMACDSignal),
		MACDHistogram:  v(IndicatorMACDHistogram),
		BBUpper:        v(IndicatorBBUpper),
		BBMiddle:       v(IndicatorBBMiddle),
		BBLower:        v(IndicatorBBLower),
	}
}

// Latest returns the last row and false when the set is empty
func (s *IndicatorSet) Latest() (IndicatorRow, bool) {
	if s.Len() == 0 {
		return IndicatorRow{}, false
	}
	return s.Row(s.Len() - 1), true
}

// Rows returns every row in date order
func (s *IndicatorSet) Rows() []IndicatorRow {
	rows := make([]IndicatorRow, s.Len())
	for i := range rows {
		rows[i] = s.Row(i)
	}
	return rows
}

// IndicatorRow is one dated row of prices and indicators
type IndicatorRow struct {
	Date           time.Time `json:"date"`
	Open           float64   `json:"open"`
	High           float64   `json:"high"`
	Low            float64   `json:"low"`
	Close          float64   `json:"close"`
	Volume         int64     `json:"volume"`
	DailyChangePct NullFloat `json:"daily_change_pct"`
	MA5            NullFloat `json:"ma5"`
	MA10           NullFloat `json:"ma10"`
	MA20           NullFloat `json:"ma20"`
	MA60           NullFloat `json:"ma60"`
	RSI            NullFloat `json:"rsi"`
	MACD           NullFloat `json:"macd"`
	MACDSignal     NullFloat `json:"macd_signal"`
	MACDHistogram  NullFloat `json:"macd_histogram"`
	BBUpper        NullFloat `json:"bb_upper"`
	BBMiddle       NullFloat `json:"bb_middle"`
	BBLower        NullFloat `json:"bb_lower"`
}

// Trend labels
const (
	TrendUp   = "short-term uptrend"
	TrendDown = "short-term downtrend"

	RSIOverbought = "overbought"
	RSIOversold   = "oversold"
	RSINeutral    = "neutral"

	MACDBullish = "bullish"
	MACDBearish = "bearish"
)

// TrendSummary is a snapshot of the latest market state.
// Empty label strings mean the underlying indicator was undefined.
type TrendSummary struct {
	Date           time.Time `json:"date"`
	CurrentPrice   float64   `json:"current_price"`
	PriceChange    float64   `json:"price_change"`
	PriceChangePct float64   `json:"price_change_pct"`
	MATrend        string    `json:"ma_trend"`
	RSIZone        string    `json:"rsi_zone"`
	MACDBias       string    `json:"macd_bias"`
}

// Signal classes
const (
	SignalBuy        = "buy"
	SignalSell       = "sell"
	SignalUptrend    = "uptrend"
	SignalDowntrend  = "downtrend"
	SignalStrongBuy  = "strong buy"
	SignalStrongSell = "strong sell"
	SignalBreakout   = "breakout"
	SignalReversal   = "reversal"
	SignalNeutral    = "neutral"
)

// NoClearSignal is emitted when no rule fires
const NoClearSignal = "No clear signal"

// Signal is one fired trading rule
type Signal struct {
	Rule    string `json:"rule"`
	Class   string `json:"class"`
	Message string `json:"message"`
}

// IsSellSide reports whether the signal argues for selling
func (s Signal) IsSellSide() bool {
	return s.Class == SignalSell || s.Class == SignalStrongSell || s.Class == SignalDowntrend
}

// SignalList is the ordered list of signal messages, never empty
type SignalList []string

// ForecastRequest configures one forecasting run
type ForecastRequest struct {
	SequenceLength int     `json:"sequence_length" default:"30" validate:"gt=1"`
	Horizon        int     `json:"horizon" default:"10" validate:"gt=0,lte=365"`
	HiddenUnits    []int   `json:"hidden_units" default:"[50,50]" validate:"min=1,dive,gt=0"`
	Epochs         int     `json:"epochs" default:"20" validate:"gt=0"`
	BatchSize      int     `json:"batch_size" default:"32" validate:"gt=0"`
	LearningRate   float64 `json:"learning_rate" default:"0.001" validate:"gt=0"`
	Seed           *int64  `json:"seed,omitempty"` // nil means unseeded
}

// Forecast is an autoregressive multi-step price prediction
type Forecast struct {
	RunID        string    `json:"run_id"`
	Values       []float64 `json:"values"`
	Seed         int64     `json:"seed"`
	TrainingLoss float64   `json:"training_loss"`
}

// Fundamentals are valuation metrics of the instrument
type Fundamentals struct {
	MarketCap  NullFloat `json:"market_cap"`
	TrailingPE NullFloat `json:"trailing_pe"`
}

// Report bundles every output of one analysis request
type Report struct {
	Symbol      string         `json:"symbol"`
	GeneratedAt time.Time      `json:"generated_at"`
	Indicators  []IndicatorRow `json:"indicators"`
	LargeMoves  []IndicatorRow `json:"large_moves"`
	Trend       TrendSummary   `json:"trend"`
	Signals     SignalList     `json:"signals"`
	Forecast    *Forecast      `json:"forecast,omitempty"`

	// Fundamentals is nil when the source offers no statistics
	Fundamentals *Fundamentals `json:"fundamentals,omitempty"`

	// ForecastError explains a skipped forecast, empty otherwise
	ForecastError string `json:"forecast_error,omitempty"`
}

// UserPreference stores the last analysis settings of a bot user
type UserPreference struct {
	UserID        int64     `json:"user_id"`
	ChatID        int64     `json:"chat_id"`
	Symbol        string    `json:"symbol"`
	Lookback      string    `json:"lookback"`
	LastRequested time.Time `json:"last_requested"`
}

package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/StockPredictor/internal/platform/http"
	"github.com/Alias1177/StockPredictor/models"
)

// DefaultBaseURL is the public Twelve Data endpoint
const DefaultBaseURL = "https://api.twelvedata.com"

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// statisticsResponse is the part of the /statistics payload we read
type statisticsResponse struct {
	Statistics struct {
		ValuationsMetrics struct {
			MarketCapitalization *float64 `json:"market_capitalization"`
			TrailingPE           *float64 `json:"trailing_pe"`
		} `json:"valuations_metrics"`
	} `json:"statistics"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// timeSeriesResponse is the /time_series payload
type timeSeriesResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "twelvedata_client").Logger(),
	}
}

// GetDailySeries fetches up to outputSize daily bars, oldest first.
// Every failure is reported as *models.DataFetchError.
func (c *Client) GetDailySeries(ctx context.Context, symbol string, outputSize int) (models.PriceSeries, error) {
	series, err := c.getDailySeries(ctx, symbol, outputSize)
	if err != nil {
		return models.PriceSeries{}, &models.DataFetchError{Symbol: symbol, Err: err}
	}
	return series, nil
}

func (c *Client) getDailySeries(ctx context.Context, symbol string, outputSize int) (models.PriceSeries, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", "1day")
	query.Set("outputsize", strconv.Itoa(outputSize))
	query.Set("apikey", c.apiKey)

	c.logger.Debug().Str("symbol", symbol).Int("outputsize", outputSize).Msg("Fetching daily series")

	body, err := c.get(ctx, "/time_series", query)
	if err != nil {
		return models.PriceSeries{}, err
	}

	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return models.PriceSeries{}, fmt.Errorf("parsing JSON: %w", err)
	}

	if data.Status == "error" {
		c.logger.Error().Int("code", data.Code).Str("message", data.Message).Msg("Twelve Data API error")
		return models.PriceSeries{}, fmt.Errorf("Twelve Data API error %d: %s", data.Code, data.Message)
	}

	if len(data.Values) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No bars in response")
		return models.PriceSeries{}, models.ErrEmptySeries
	}

	candles := make([]models.Candle, 0, len(data.Values))
	for _, v := range data.Values {
		candle, err := parseCandle(v.Datetime, v.Open, v.High, v.Low, v.Close, v.Volume)
		if err != nil {
			return models.PriceSeries{}, err
		}
		candles = append(candles, candle)
	}

	// Sort candles by date (oldest first for proper calculations)
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})
	candles = dedupeByDate(candles)

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched daily series")
	return models.PriceSeries{Symbol: symbol, Candles: candles}, nil
}

// GetFundamentals fetches market capitalisation and trailing P/E.
// Metrics missing from the payload are left undefined.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("apikey", c.apiKey)

	body, err := c.get(ctx, "/statistics", query)
	if err != nil {
		return models.Fundamentals{}, &models.DataFetchError{Symbol: symbol, Err: err}
	}

	var data statisticsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.Fundamentals{}, &models.DataFetchError{Symbol: symbol, Err: fmt.Errorf("parsing JSON: %w", err)}
	}
	if data.Status == "error" {
		return models.Fundamentals{}, &models.DataFetchError{
			Symbol: symbol,
			Err:    fmt.Errorf("Twelve Data API error %d: %s", data.Code, data.Message),
		}
	}

	metrics := data.Statistics.ValuationsMetrics
	return models.Fundamentals{
		MarketCap:  optional(metrics.MarketCapitalization),
		TrailingPE: optional(metrics.TrailingPE),
	}, nil
}

// get performs a GET on the API and returns the raw body
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

func optional(v *float64) models.NullFloat {
	if v == nil {
		return models.Undefined()
	}
	return models.NullFloat(*v)
}

func parseCandle(datetime, open, high, low, closing, volume string) (models.Candle, error) {
	date, err := parseDate(datetime)
	if err != nil {
		return models.Candle{}, err
	}

	var c models.Candle
	c.Date = date
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", open, &c.Open},
		{"high", high, &c.High},
		{"low", low, &c.Low},
		{"close", closing, &c.Close},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("parsing %s for %s: %w", f.name, datetime, err)
		}
		*f.dst = v
	}

	// Forex and some indices come without volume
	if volume != "" {
		v, err := strconv.ParseInt(volume, 10, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("parsing volume for %s: %w", datetime, err)
		}
		c.Volume = v
	}

	return c, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{models.DateLayout, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", raw)
}

// dedupeByDate keeps the last bar of each calendar day in sorted input
func dedupeByDate(candles []models.Candle) []models.Candle {
	out := candles[:0]
	for _, c := range candles {
		if n := len(out); n > 0 && out[n-1].Date.Format(models.DateLayout) == c.Date.Format(models.DateLayout) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

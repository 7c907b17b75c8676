package twelvedata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	httpClient "github.com/Alias1177/StockPredictor/internal/platform/http"
	"github.com/Alias1177/StockPredictor/models"
)

const sampleResponse = `{
  "meta": {"symbol": "AAPL", "interval": "1day"},
  "values": [
    {"datetime": "2024-01-04", "open": "182.15", "high": "183.09", "low": "180.88", "close": "181.91", "volume": "71983600"},
    {"datetime": "2024-01-03", "open": "184.22", "high": "185.88", "low": "183.43", "close": "184.25", "volume": "58414500"},
    {"datetime": "2024-01-03", "open": "184.22", "high": "185.88", "low": "183.43", "close": "184.30", "volume": "58414600"},
    {"datetime": "2024-01-02", "open": "187.15", "high": "188.44", "low": "183.89", "close": "185.64", "volume": "82488700"}
  ],
  "status": "ok"
}`

func newTestClient(url string) *Client {
	return NewClient(ClientOptions{
		APIKey:          "test-key",
		BaseURL:         url,
		RequestTimeout:  2 * time.Second,
		RequestsPerSec:  100,
		MaxRetries:      2,
		MaxRetryTimeout: 3 * time.Second,
	})
}

func TestGetDailySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/time_series" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "AAPL" || q.Get("interval") != "1day" || q.Get("outputsize") != "252" || q.Get("apikey") != "test-key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	series, err := newTestClient(server.URL).GetDailySeries(context.Background(), "AAPL", 252)
	if err != nil {
		t.Fatalf("GetDailySeries() error = %v", err)
	}

	if series.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", series.Symbol)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 bars after dedup, got %d", series.Len())
	}
	if err := series.Validate(); err != nil {
		t.Errorf("series should be strictly increasing: %v", err)
	}

	wantCloses := []float64{185.64, 184.30, 181.91}
	for i, want := range wantCloses {
		if got := series.Candles[i].Close; got != want {
			t.Errorf("close[%d] = %v, want %v", i, got, want)
		}
	}
	if series.Candles[0].Volume != 82488700 {
		t.Errorf("volume = %d, want 82488700", series.Candles[0].Volume)
	}
}

func TestGetDailySeries_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantHits  int32
		wantEmpty bool
	}{
		{
			name:     "API error payload",
			status:   http.StatusOK,
			body:     `{"code": 400, "message": "symbol not found", "status": "error"}`,
			wantHits: 1,
		},
		{
			name:      "no values",
			status:    http.StatusOK,
			body:      `{"meta": {"symbol": "AAPL"}, "values": [], "status": "ok"}`,
			wantHits:  1,
			wantEmpty: true,
		},
		{
			name:     "malformed price",
			status:   http.StatusOK,
			body:     `{"values": [{"datetime": "2024-01-02", "open": "x", "high": "1", "low": "1", "close": "1"}], "status": "ok"}`,
			wantHits: 1,
		},
		{
			name:     "client error is not retried",
			status:   http.StatusUnauthorized,
			body:     `{}`,
			wantHits: 1,
		},
		{
			name:     "server error is retried",
			status:   http.StatusInternalServerError,
			body:     `{}`,
			wantHits: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).GetDailySeries(context.Background(), "AAPL", 10)

			var fetchErr *models.DataFetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected DataFetchError, got %v", err)
			}
			if fetchErr.Symbol != "AAPL" {
				t.Errorf("Symbol = %q, want AAPL", fetchErr.Symbol)
			}
			if tt.wantEmpty && !errors.Is(err, models.ErrEmptySeries) {
				t.Errorf("expected ErrEmptySeries in chain, got %v", err)
			}
			if tt.status != http.StatusOK {
				var statusErr *httpClient.HTTPStatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
					t.Errorf("expected HTTPStatusError %d, got %v", tt.status, err)
				}
			}
			if got := atomic.LoadInt32(&hits); got != tt.wantHits {
				t.Errorf("server hit %d times, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{raw: "2024-02-29", want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{raw: "2024-02-29 15:30:00", want: time.Date(2024, 2, 29, 15, 30, 0, 0, time.UTC)},
		{raw: "29/02/2024", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseDate(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetFundamentals(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantCap float64
		wantPE  bool
		wantErr bool
	}{
		{
			name:    "complete",
			body:    `{"meta":{"symbol":"AAPL"},"statistics":{"valuations_metrics":{"market_capitalization":2854937182208,"trailing_pe":29.61}}}`,
			wantCap: 2854937182208,
			wantPE:  true,
		},
		{
			name:    "no trailing pe",
			body:    `{"statistics":{"valuations_metrics":{"market_capitalization":1000000,"trailing_pe":null}}}`,
			wantCap: 1000000,
		},
		{
			name:    "api error",
			body:    `{"code":403,"message":"statistics is available on higher plans","status":"error"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/statistics" || r.URL.Query().Get("symbol") != "AAPL" {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			f, err := newTestClient(server.URL).GetFundamentals(context.Background(), "AAPL")
			if tt.wantErr {
				var de *models.DataFetchError
				if !errors.As(err, &de) {
					t.Errorf("expected DataFetchError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetFundamentals() error = %v", err)
			}
			if f.MarketCap.Float() != tt.wantCap {
				t.Errorf("MarketCap = %v, want %v", f.MarketCap, tt.wantCap)
			}
			if f.TrailingPE.Valid() != tt.wantPE {
				t.Errorf("TrailingPE = %v, defined want %v", f.TrailingPE, tt.wantPE)
			}
		})
	}
}

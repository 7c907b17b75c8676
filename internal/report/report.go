package report

import (
	"fmt"
	"strings"

	"github.com/Alias1177/StockPredictor/models"
)

// FormatText renders the report as plain text for the terminal
func FormatText(r *models.Report) string {
	return format(r, func(s string) string { return s })
}

// FormatMarkdown renders the report with Telegram Markdown headings
func FormatMarkdown(r *models.Report) string {
	return format(r, func(s string) string { return "*" + s + "*" })
}

func format(r *models.Report, heading func(string) string) string {
	var b strings.Builder

	b.WriteString(heading(fmt.Sprintf("Analysis for %s", r.Symbol)))
	b.WriteString("\n")
	if !r.Trend.Date.IsZero() {
		b.WriteString(fmt.Sprintf("As of %s\n", r.Trend.Date.Format(models.DateLayout)))
	}
	b.WriteString("\n")

	// Trend
	t := r.Trend
	b.WriteString(heading("Trend"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Current Price: %.2f\n", t.CurrentPrice))
	b.WriteString(fmt.Sprintf("Change: %+.2f (%+.2f%%)\n", t.PriceChange, t.PriceChangePct))
	b.WriteString(fmt.Sprintf("MA Trend: %s\n", label(t.MATrend)))
	b.WriteString(fmt.Sprintf("RSI Zone: %s\n", label(t.RSIZone)))
	b.WriteString(fmt.Sprintf("MACD Bias: %s\n", label(t.MACDBias)))

	// Fundamentals
	var marketCap, pe models.NullFloat = models.Undefined(), models.Undefined()
	if f := r.Fundamentals; f != nil {
		marketCap, pe = f.MarketCap, f.TrailingPE
	}
	b.WriteString(fmt.Sprintf("Market Cap: %s\n", largeNumber(marketCap)))
	b.WriteString(fmt.Sprintf("Trailing P/E: %s\n", value(pe)))

	// Latest indicators
	if n := len(r.Indicators); n > 0 {
		last := r.Indicators[n-1]
		b.WriteString("\n")
		b.WriteString(heading("Indicators"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("RSI: %s\n", value(last.RSI)))
		b.WriteString(fmt.Sprintf("MA5: %s | MA10: %s | MA20: %s | MA60: %s\n",
			value(last.MA5), value(last.MA10), value(last.MA20), value(last.MA60)))
		b.WriteString(fmt.Sprintf("MACD: %s | Signal: %s | Histogram: %s\n",
			value(last.MACD), value(last.MACDSignal), value(last.MACDHistogram)))
		b.WriteString(fmt.Sprintf("BB: %s / %s / %s\n",
			value(last.BBLower), value(last.BBMiddle), value(last.BBUpper)))
	}

	// Signals
	b.WriteString("\n")
	b.WriteString(heading("Signals"))
	b.WriteString("\n")
	for i, s := range r.Signals {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
	}

	// Large moves
	b.WriteString("\n")
	b.WriteString(heading("Large Moves"))
	b.WriteString("\n")
	if len(r.LargeMoves) == 0 {
		b.WriteString("No large daily moves in this period\n")
	}
	for _, m := range r.LargeMoves {
		b.WriteString(fmt.Sprintf("%s  close %.2f  change %s%%\n",
			m.Date.Format(models.DateLayout), m.Close, signed(m.DailyChangePct)))
	}

	// Forecast
	if r.ForecastError != "" {
		b.WriteString("\n")
		b.WriteString(heading("Forecast"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Unavailable: %s\n", r.ForecastError))
	}
	if r.Forecast != nil {
		b.WriteString("\n")
		b.WriteString(heading(fmt.Sprintf("Forecast (next %d days)", len(r.Forecast.Values))))
		b.WriteString("\n")
		for i, v := range r.Forecast.Values {
			b.WriteString(fmt.Sprintf("Day %d: %.2f\n", i+1, v))
		}
		b.WriteString(fmt.Sprintf("Training loss: %.6f\n", r.Forecast.TrainingLoss))
	}

	return b.String()
}

func label(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func value(v models.NullFloat) string {
	if !v.Valid() {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.Float())
}

func signed(v models.NullFloat) string {
	if !v.Valid() {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f", v.Float())
}

// largeNumber abbreviates market capitalisation figures
func largeNumber(v models.NullFloat) string {
	if !v.Valid() {
		return "n/a"
	}
	f := v.Float()
	switch {
	case f >= 1e12:
		return fmt.Sprintf("%.2fT", f/1e12)
	case f >= 1e9:
		return fmt.Sprintf("%.2fB", f/1e9)
	case f >= 1e6:
		return fmt.Sprintf("%.2fM", f/1e6)
	default:
		return fmt.Sprintf("%.0f", f)
	}
}

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// LookbackToOutputSize converts a lookback period such as "1mo", "1y" or "90d"
// into the number of daily bars to request. Months and years count trading days.
func LookbackToOutputSize(period string) (int, error) {
	period = strings.ToLower(strings.TrimSpace(period))

	switch period {
	case "1mo":
		return 21, nil
	case "3mo":
		return 63, nil
	case "6mo":
		return 126, nil
	case "1y":
		return 252, nil
	case "2y":
		return 504, nil
	case "5y":
		return 1260, nil
	}

	if strings.HasSuffix(period, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(period, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("%w %q", ErrInvalidLookback, period)
		}
		return days, nil
	}

	return 0, fmt.Errorf("%w %q: use 1mo, 3mo, 6mo, 1y, 2y, 5y or <n>d", ErrInvalidLookback, period)
}

// NormalizeSymbol trims whitespace and upper-cases a ticker
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

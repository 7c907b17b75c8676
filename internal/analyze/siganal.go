package analyze

import (
	"github.com/Alias1177/StockPredictor/models"
)

// signalRule is one threshold rule. ok is false when an input is undefined.
type signalRule struct {
	name    string
	class   string
	message string
	fires   func(row models.IndicatorRow) (fired bool, ok bool)
}

// Evaluation order is part of the output contract.
var signalRules = []signalRule{
	{
		name:    "rsi_oversold",
		class:   models.SignalBuy,
		message: "RSI is oversold (below 30): possible buy opportunity",
		fires: func(r models.IndicatorRow) (bool, bool) {
			return r.RSI < 30, r.RSI.Valid()
		},
	},
	{
		name:    "rsi_overbought",
		class:   models.SignalSell,
		message: "RSI is overbought (above 70): possible sell opportunity",
		fires: func(r models.IndicatorRow) (bool, bool) {
			return r.RSI > 70, r.RSI.Valid()
		},
	},
	{
		name:    "ma_bullish_alignment",
		class:   models.SignalUptrend,
		message: "Price is above MA5 and MA5 is above MA20: uptrend confirmed",
		fires: func(r models.IndicatorRow) (bool, bool) {
			ok := r.MA5.Valid() && r.MA20.Valid()
			return r.MA5 > r.MA20 && r.Close > r.MA5.Float(), ok
		},
	},
	{
		name:    "ma_bearish_alignment",
		class:   models.SignalDowntrend,
		message: "Price is below MA5 and MA5 is below MA20: downtrend confirmed",
		fires: func(r models.IndicatorRow) (bool, bool) {
			ok := r.MA5.Valid() && r.MA20.Valid()
			return r.MA5 < r.MA20 && r.Close < r.MA5.Float(), ok
		},
	},
	{
		name:    "macd_strong_buy",
		class:   models.SignalStrongBuy,
		message: "MACD is above its signal line in positive territory: strong buy",
		fires: func(r models.IndicatorRow) (bool, bool) {
			ok := r.MACD.Valid() && r.MACDSignal.Valid()
			return r.MACD > r.MACDSignal && r.MACDSignal > 0, ok
		},
	},
	{
		name:    "macd_strong_sell",
		class:   models.SignalStrongSell,
		message: "MACD is below its signal line in negative territory: strong sell",
		fires: func(r models.IndicatorRow) (bool, bool) {
			ok := r.MACD.Valid() && r.MACDSignal.Valid()
			return r.MACD < r.MACDSignal && r.MACDSignal < 0, ok
		},
	},
	{
		name:    "bollinger_breakout_up",
		class:   models.SignalBreakout,
		message: "Price closed above the upper Bollinger Band: breakout",
		fires: func(r models.IndicatorRow) (bool, bool) {
			return r.Close > r.BBUpper.Float(), r.BBUpper.Valid()
		},
	},
	{
		name:    "bollinger_breakout_down",
		class:   models.SignalReversal,
		message: "Price closed below the lower Bollinger Band: possible reversal opportunity",
		fires: func(r models.IndicatorRow) (bool, bool) {
			return r.Close < r.BBLower.Float(), r.BBLower.Valid()
		},
	},
}

// EvaluateSignals returns every rule that fired on the row, in rule order.
// Rules with undefined inputs are skipped.
func EvaluateSignals(row models.IndicatorRow) []models.Signal {
	var signals []models.Signal
	for _, rule := range signalRules {
		fired, ok := rule.fires(row)
		if !ok || !fired {
			continue
		}
		signals = append(signals, models.Signal{
			Rule:    rule.name,
			Class:   rule.class,
			Message: rule.message,
		})
	}
	return signals
}

// GenerateSignals returns the signal messages for the row, or a single
// "No clear signal" entry when nothing fired
func GenerateSignals(row models.IndicatorRow) models.SignalList {
	signals := EvaluateSignals(row)
	if len(signals) == 0 {
		return models.SignalList{models.NoClearSignal}
	}

	list := make(models.SignalList, len(signals))
	for i, s := range signals {
		list[i] = s.Message
	}
	return list
}

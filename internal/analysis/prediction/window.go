package prediction

import (
	"fmt"

	"github.com/Alias1177/StockPredictor/models"
)

// BuildWindows slices prices into supervised samples: each input is
// seqLen consecutive prices and its target is the price that follows.
// At least seqLen+1 prices are required.
func BuildWindows(prices []float64, seqLen int) ([][]float64, []float64, error) {
	if seqLen < 1 {
		return nil, nil, fmt.Errorf("sequence length must be positive, got %d", seqLen)
	}
	if len(prices) <= seqLen {
		return nil, nil, &models.InsufficientHistoryError{
			Stage:     "windowing",
			Required:  seqLen,
			Available: len(prices),
		}
	}

	count := len(prices) - seqLen
	inputs := make([][]float64, count)
	targets := make([]float64, count)
	for i := seqLen; i < len(prices); i++ {
		window := make([]float64, seqLen)
		copy(window, prices[i-seqLen:i])
		inputs[i-seqLen] = window
		targets[i-seqLen] = prices[i]
	}

	return inputs, targets, nil
}

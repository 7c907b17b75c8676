package prediction

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"github.com/Alias1177/StockPredictor/models"
)

var errScalerNotFitted = errors.New("scaler has not been fitted")

// MinMaxScaler maps values linearly onto [0, 1] using the range seen in Fit.
// A zero range maps everything to 0 and inverts back to the constant.
type MinMaxScaler struct {
	min    float64
	max    float64
	fitted bool
}

// Fit records the minimum and maximum of values
func (s *MinMaxScaler) Fit(values []float64) error {
	if len(values) == 0 {
		return models.ErrEmptySeries
	}
	s.min = floats.Min(values)
	s.max = floats.Max(values)
	s.fitted = true
	return nil
}

// Range returns the fitted minimum and maximum
func (s *MinMaxScaler) Range() (float64, float64) {
	return s.min, s.max
}

func (s *MinMaxScaler) scale(v float64) float64 {
	span := s.max - s.min
	if span == 0 {
		return 0
	}
	return (v - s.min) / span
}

func (s *MinMaxScaler) unscale(v float64) float64 {
	span := s.max - s.min
	if span == 0 {
		return s.min
	}
	return v*span + s.min
}

// Transform returns a scaled copy of values
func (s *MinMaxScaler) Transform(values []float64) ([]float64, error) {
	if !s.fitted {
		return nil, errScalerNotFitted
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.scale(v)
	}
	return out, nil
}

// InverseTransform maps scaled values back to prices
func (s *MinMaxScaler) InverseTransform(values []float64) ([]float64, error) {
	if !s.fitted {
		return nil, errScalerNotFitted
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.unscale(v)
	}
	return out, nil
}

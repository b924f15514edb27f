package calculator

import (
	"errors"

	movingaverage "github.com/RobinUS2/golang-moving-average"

	"BreakoutScreener/internal/model"
)

// CalculateVolumeAverage returns the simple average volume of the trailing window bars.
func CalculateVolumeAverage(bars []model.OHLCV, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(bars) < window {
		return 0, errors.New("not enough data for volume average")
	}
	ma := movingaverage.New(window)
	for _, b := range bars[len(bars)-window:] {
		ma.Add(float64(b.Volume))
	}
	return ma.Avg(), nil
}

// EMASeries returns the exponential moving average of values with the given span.
// The average is seeded on the first value and uses alpha = 2/(span+1).
func EMASeries(values []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.New("span must be positive")
	}
	if len(values) == 0 {
		return nil, errors.New("no values for EMA calculation")
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

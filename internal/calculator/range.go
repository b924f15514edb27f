package calculator

import (
	"errors"
	"math"

	"BreakoutScreener/internal/model"
)

// CalculateRangeHigh returns the highest high of the trailing window bars.
// A window <= 0 scans the whole series.
func CalculateRangeHigh(bars []model.OHLCV, window int) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no bars provided")
	}
	start := 0
	if window > 0 {
		if len(bars) < window {
			return 0, errors.New("not enough data for range high")
		}
		start = len(bars) - window
	}
	high := math.Inf(-1)
	for i := start; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
	}
	return high, nil
}

// CalculateLookbackHigh returns the highest high over the entire supplied series.
// The series length is the lookback; nothing here assumes 52 weeks.
func CalculateLookbackHigh(bars []model.OHLCV) (float64, error) {
	return CalculateRangeHigh(bars, 0)
}

package calculator

import (
	"errors"

	"BreakoutScreener/internal/model"
)

// CalculateRSI computes the Wilder-smoothed RSI over the given period.
// Both averages start at zero on the first bar and take every change as
// avg += (x - avg) / period, the same recursion pandas ewm(alpha=1/period,
// adjust=False) runs. Requires at least period+1 bars.
func CalculateRSI(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 0, errors.New("not enough data for RSI calculation")
	}

	closes := extractCloses(bars)
	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		var gain, loss float64
		if change := closes[i] - closes[i-1]; change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain += alpha * (gain - avgGain)
		avgLoss += alpha * (loss - avgLoss)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

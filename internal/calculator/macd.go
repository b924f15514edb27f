package calculator

import (
	"errors"

	"BreakoutScreener/internal/model"
)

// MACDResult is the MACD state at the last bar.
type MACDResult struct {
	MACD   float64
	Signal float64
	Diff   float64 // histogram: MACD - Signal
}

// CalculateMACD computes MACD(fast, slow, signal) as of the last bar.
//
// The MACD line is defined from bar `slow` onwards; the signal line is the
// EMA of those values and needs `signal` of them, so at least
// slow+signal-1 bars are required.
func CalculateMACD(bars []model.OHLCV, fast, slow, signal int) (*MACDResult, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, errors.New("periods must be positive")
	}
	if fast >= slow {
		return nil, errors.New("fast period must be shorter than slow period")
	}
	if len(bars) < slow+signal-1 {
		return nil, errors.New("not enough data for MACD signal line")
	}

	closes := extractCloses(bars)
	fastEMA, err := EMASeries(closes, fast)
	if err != nil {
		return nil, err
	}
	slowEMA, err := EMASeries(closes, slow)
	if err != nil {
		return nil, err
	}

	line := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		line = append(line, fastEMA[i]-slowEMA[i])
	}
	sig, err := EMASeries(line, signal)
	if err != nil {
		return nil, err
	}

	last := len(line) - 1
	return &MACDResult{
		MACD:   line[last],
		Signal: sig[last],
		Diff:   line[last] - sig[last],
	}, nil
}

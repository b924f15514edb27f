package calculator

import (
	"fmt"
	"math"

	"BreakoutScreener/internal/model"
)

// Params holds the indicator periods.
type Params struct {
	RSIPeriod     int
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	RollingWindow int // high20 and volumeAvg20
	MinBars       int
}

// DefaultParams returns RSI(14), MACD(12,26,9), 20-bar windows and a 30-bar minimum.
func DefaultParams() Params {
	return Params{
		RSIPeriod:     14,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		RollingWindow: 20,
		MinBars:       30,
	}
}

// Validate checks the periods are usable together.
func (p Params) Validate() error {
	if p.RSIPeriod <= 0 || p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 || p.RollingWindow <= 0 {
		return fmt.Errorf("indicator periods must be positive")
	}
	if p.MACDFast >= p.MACDSlow {
		return fmt.Errorf("macd fast period %d must be shorter than slow period %d", p.MACDFast, p.MACDSlow)
	}
	if p.MinBars < p.RollingWindow || p.MinBars < p.RSIPeriod+1 {
		return fmt.Errorf("min bars %d must cover the rolling window and RSI period", p.MinBars)
	}
	return nil
}

// ValidateSeries rejects series that are too short or carry invalid fields.
func ValidateSeries(series *model.PriceSeries, minBars int) error {
	if series.Len() < minBars {
		return fmt.Errorf("%w: %d bars, need %d", model.ErrInsufficientData, series.Len(), minBars)
	}
	for i, b := range series.Bars {
		if !positive(b.Open) || !positive(b.High) || !positive(b.Low) || !positive(b.Close) {
			return fmt.Errorf("%w: non-positive price at bar %d", model.ErrMalformed, i)
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: negative volume at bar %d", model.ErrMalformed, i)
		}
		if i > 0 && !b.Time.After(series.Bars[i-1].Time) {
			return fmt.Errorf("%w: bars out of order at %d", model.ErrMalformed, i)
		}
	}
	return nil
}

// ComputeSnapshot derives every indicator needed for classification as of the last bar.
func ComputeSnapshot(series *model.PriceSeries, p Params) (*model.IndicatorSnapshot, error) {
	if err := ValidateSeries(series, p.MinBars); err != nil {
		return nil, err
	}
	bars := series.Bars
	last := series.Last()

	rsi, err := CalculateRSI(bars, p.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("%w: rsi: %v", model.ErrInsufficientData, err)
	}
	macd, err := CalculateMACD(bars, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return nil, fmt.Errorf("%w: macd: %v", model.ErrDegenerate, err)
	}
	volAvg, err := CalculateVolumeAverage(bars, p.RollingWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: volume average: %v", model.ErrInsufficientData, err)
	}
	high20, err := CalculateRangeHigh(bars, p.RollingWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: rolling high: %v", model.ErrInsufficientData, err)
	}
	highLookback, err := CalculateLookbackHigh(bars)
	if err != nil {
		return nil, fmt.Errorf("%w: lookback high: %v", model.ErrInsufficientData, err)
	}

	snap := &model.IndicatorSnapshot{
		Close:       last.Close,
		VolumeToday: last.Volume,
		RSI14:       rsi,
		MACD:        macd.MACD,
		MACDSignal:  macd.Signal,
		MACDDiff:    macd.Diff,
		VolumeAvg20: volAvg,
		High20:      high20,
		High52w:     highLookback,
		Bars:        len(bars),
	}
	for name, v := range map[string]float64{
		"rsi": snap.RSI14, "macd": snap.MACD, "macd signal": snap.MACDSignal,
		"volume average": snap.VolumeAvg20, "high20": snap.High20, "high52w": snap.High52w,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", model.ErrDegenerate, name)
		}
	}
	return snap, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

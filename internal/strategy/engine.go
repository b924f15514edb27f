package strategy

import (
	"fmt"

	"BreakoutScreener/internal/model"
)

// Thresholds holds the breakout gating policy.
type Thresholds struct {
	NearHigh20Ratio       float64 // close >= ratio * high20
	NearLookbackHighRatio float64 // close >= ratio * high52w
	VolumeSpikeRatio      float64 // volume today > ratio * volumeAvg20
	RSIMin                float64 // rsi14 > RSIMin
	MACDDiffMin           float64 // macdDiff > MACDDiffMin
}

// DefaultThresholds returns 0.98 / 0.95 / 1.5x / RSI 60 / MACD 0.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NearHigh20Ratio:       0.98,
		NearLookbackHighRatio: 0.95,
		VolumeSpikeRatio:      1.5,
		RSIMin:                60,
		MACDDiffMin:           0,
	}
}

// Validate checks the ratios are sensible.
func (t Thresholds) Validate() error {
	if t.NearHigh20Ratio <= 0 || t.NearLookbackHighRatio <= 0 {
		return fmt.Errorf("near-high ratios must be positive")
	}
	if t.VolumeSpikeRatio <= 0 {
		return fmt.Errorf("volume spike ratio must be positive")
	}
	if t.RSIMin < 0 || t.RSIMin > 100 {
		return fmt.Errorf("rsi threshold %.1f outside [0,100]", t.RSIMin)
	}
	return nil
}

// Evaluation is the verdict of every gate for one symbol.
type Evaluation struct {
	Symbol string
	Gates  []GateResult
	Passed bool
}

// Evaluate runs all gates against the snapshot.
func Evaluate(symbol string, snap *model.IndicatorSnapshot, th Thresholds) *Evaluation {
	gates := []GateResult{
		nearBreakoutGate(snap, th),
		volumeSpikeGate(snap, th),
		momentumGate(snap, th),
	}
	passed := true
	for _, g := range gates {
		passed = passed && g.Passed
	}
	return &Evaluation{Symbol: symbol, Gates: gates, Passed: passed}
}

// Classify returns a candidate when all gates pass, nil otherwise.
func Classify(symbol string, snap *model.IndicatorSnapshot, th Thresholds) *model.BreakoutCandidate {
	if !Evaluate(symbol, snap, th).Passed {
		return nil
	}
	return model.NewBreakoutCandidate(symbol, snap)
}

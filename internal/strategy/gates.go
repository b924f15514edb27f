package strategy

import (
	"fmt"

	"BreakoutScreener/internal/model"
)

// GateResult is one gate's verdict.
type GateResult struct {
	Name       string
	Passed     bool
	Commentary string
}

const (
	GateNearBreakout = "near_breakout"
	GateVolumeSpike  = "volume_spike"
	GateMomentum     = "bullish_momentum"
)

// nearBreakoutGate passes when close is near the 20-bar high or near the lookback high.
func nearBreakoutGate(snap *model.IndicatorSnapshot, th Thresholds) GateResult {
	near20 := snap.Close >= th.NearHigh20Ratio*snap.High20
	nearLookback := snap.Close >= th.NearLookbackHighRatio*snap.High52w
	return GateResult{
		Name:   GateNearBreakout,
		Passed: near20 || nearLookback,
		Commentary: fmt.Sprintf("close=%.2f high20=%.2f (%v) high52w=%.2f (%v)",
			snap.Close, snap.High20, near20, snap.High52w, nearLookback),
	}
}

// volumeSpikeGate passes when today's volume strictly exceeds the ratio times the 20-bar average.
func volumeSpikeGate(snap *model.IndicatorSnapshot, th Thresholds) GateResult {
	return GateResult{
		Name:       GateVolumeSpike,
		Passed:     float64(snap.VolumeToday) > th.VolumeSpikeRatio*snap.VolumeAvg20,
		Commentary: fmt.Sprintf("volume=%d avg20=%.0f", snap.VolumeToday, snap.VolumeAvg20),
	}
}

// momentumGate requires both RSI strength and a positive MACD histogram.
func momentumGate(snap *model.IndicatorSnapshot, th Thresholds) GateResult {
	return GateResult{
		Name:       GateMomentum,
		Passed:     snap.RSI14 > th.RSIMin && snap.MACDDiff > th.MACDDiffMin,
		Commentary: fmt.Sprintf("RSI=%.2f macdDiff=%+.4f", snap.RSI14, snap.MACDDiff),
	}
}

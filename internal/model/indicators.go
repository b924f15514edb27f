package model

// IndicatorSnapshot holds the indicators of one symbol as of its last bar.
type IndicatorSnapshot struct {
	Close       float64
	VolumeToday int64
	RSI14       float64
	MACD        float64
	MACDSignal  float64
	MACDDiff    float64 // MACD - MACDSignal
	VolumeAvg20 float64
	High20      float64
	High52w     float64 // max high over the whole retrieved lookback
	Bars        int
}

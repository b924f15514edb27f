package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// BreakoutCandidate is a symbol that passed every breakout gate.
type BreakoutCandidate struct {
	Symbol             string
	Close              decimal.Decimal
	High20             decimal.Decimal
	High52w            decimal.Decimal
	VolumeToday        int64
	AvgVolume          int64
	RSI                decimal.Decimal
	ProfitPotentialPct decimal.Decimal
}

// NewBreakoutCandidate rounds the raw indicator values for presentation.
// Profit potential is measured from close up to the lookback high and is
// negative when the close already trades above it.
func NewBreakoutCandidate(symbol string, snap *IndicatorSnapshot) *BreakoutCandidate {
	profit := (snap.High52w - snap.Close) / snap.Close * 100
	return &BreakoutCandidate{
		Symbol:             symbol,
		Close:              round2(snap.Close),
		High20:             round2(snap.High20),
		High52w:            round2(snap.High52w),
		VolumeToday:        snap.VolumeToday,
		AvgVolume:          int64(math.Round(snap.VolumeAvg20)),
		RSI:                round2(snap.RSI14),
		ProfitPotentialPct: round2(profit),
	}
}

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// ScreenResult is the outcome of one screening run.
type ScreenResult struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	UniverseSize int
	Evaluated    int
	Candidates   []*BreakoutCandidate // ranked by profit potential, descending
	Skipped      map[SkipReason]int
	Canceled     bool
}

// SkippedTotal returns the number of symbols that were skipped for any reason.
func (r *ScreenResult) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Empty reports whether the run found no candidates.
func (r *ScreenResult) Empty() bool {
	return r == nil || len(r.Candidates) == 0
}

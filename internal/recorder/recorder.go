package recorder

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"BreakoutScreener/internal/model"
)

// Recorder persists screening runs for later review.
type Recorder interface {
	RecordRun(result *model.ScreenResult) error
	// LastRun returns the most recently recorded run, or nil when none exists.
	LastRun() (*model.ScreenResult, error)
	Close() error
}

// candidateRow is the stored form of a candidate; decimals are kept as text.
type candidateRow struct {
	Rank        int
	Symbol      string
	Close       string
	High20      string
	High52w     string
	VolumeToday int64
	AvgVolume   int64
	RSI         string
	Profit      string
}

func toRow(rank int, c *model.BreakoutCandidate) candidateRow {
	return candidateRow{
		Rank:        rank,
		Symbol:      c.Symbol,
		Close:       c.Close.StringFixed(2),
		High20:      c.High20.StringFixed(2),
		High52w:     c.High52w.StringFixed(2),
		VolumeToday: c.VolumeToday,
		AvgVolume:   c.AvgVolume,
		RSI:         c.RSI.StringFixed(2),
		Profit:      c.ProfitPotentialPct.StringFixed(2),
	}
}

func (r candidateRow) candidate() (*model.BreakoutCandidate, error) {
	c := &model.BreakoutCandidate{Symbol: r.Symbol, VolumeToday: r.VolumeToday, AvgVolume: r.AvgVolume}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&c.Close, r.Close}, {&c.High20, r.High20}, {&c.High52w, r.High52w},
		{&c.RSI, r.RSI}, {&c.ProfitPotentialPct, r.Profit},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = d
	}
	return c, nil
}

func encodeSkipped(skipped map[model.SkipReason]int) string {
	if len(skipped) == 0 {
		return "{}"
	}
	data, err := json.Marshal(skipped)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func decodeSkipped(s string) map[model.SkipReason]int {
	out := map[model.SkipReason]int{}
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

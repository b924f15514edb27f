package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"BreakoutScreener/internal/model"
)

// FetchResult is either a usable series or a classified error.
type FetchResult struct {
	Symbol string
	Series *model.PriceSeries
	Err    error // wraps one of the model.Err* symbol-scoped sentinels
}

// OK reports whether the result carries a series.
func (r FetchResult) OK() bool { return r.Err == nil && r.Series != nil }

// Collector turns raw fetcher output into clean price series.
type Collector struct {
	Fetcher      Fetcher
	LookbackDays int
	Timeout      time.Duration // per symbol; zero disables
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, lookbackDays int, timeout time.Duration) *Collector {
	return &Collector{Fetcher: fetcher, LookbackDays: lookbackDays, Timeout: timeout}
}

// Fetch retrieves and cleans the series for one symbol. It never panics on
// provider failure; every failure comes back inside the result.
func (c *Collector) Fetch(ctx context.Context, symbol string) FetchResult {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	type fetched struct {
		bars []model.OHLCV
		err  error
	}
	// Some SDK fetchers ignore ctx, so the call is abandoned on deadline rather than awaited.
	ch := make(chan fetched, 1)
	go func() {
		bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.LookbackDays)
		ch <- fetched{bars, err}
	}()

	var f fetched
	select {
	case <-ctx.Done():
		return FetchResult{Symbol: symbol, Err: classifyContextErr(symbol, ctx.Err())}
	case f = <-ch:
	}

	if f.err != nil {
		if ctx.Err() != nil {
			return FetchResult{Symbol: symbol, Err: classifyContextErr(symbol, ctx.Err())}
		}
		if errors.Is(f.err, model.ErrMalformed) || errors.Is(f.err, model.ErrDataUnavailable) {
			return FetchResult{Symbol: symbol, Err: fmt.Errorf("%s: %w", symbol, f.err)}
		}
		return FetchResult{Symbol: symbol, Err: fmt.Errorf("%s: %w: %v", symbol, model.ErrDataUnavailable, f.err)}
	}

	bars := CleanBars(f.bars)
	if len(bars) == 0 {
		return FetchResult{Symbol: symbol, Err: fmt.Errorf("%s: %w: no bars returned", symbol, model.ErrDataUnavailable)}
	}
	return FetchResult{
		Symbol: symbol,
		Series: &model.PriceSeries{
			Symbol:    symbol,
			Bars:      bars,
			Source:    c.Fetcher.Name(),
			FetchedAt: time.Now(),
		},
	}
}

func classifyContextErr(symbol string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", symbol, model.ErrTimeout)
	}
	return fmt.Errorf("%s: %w: %v", symbol, model.ErrDataUnavailable, err)
}

// CleanBars drops rows with missing or non-finite values, sorts by time and
// keeps the last row for any duplicated trading day.
func CleanBars(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Time.IsZero() || !finite(b.Open, b.High, b.Low, b.Close) {
			continue
		}
		if b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0 {
			continue // null bars (holidays etc.)
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && sameDay(deduped[n-1].Time, b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

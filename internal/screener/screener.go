package screener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"BreakoutScreener/internal/calculator"
	"BreakoutScreener/internal/collector"
	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/strategy"
	"BreakoutScreener/internal/universe"
)

// Options controls how a run walks the universe.
type Options struct {
	Workers       int     // concurrent symbol evaluations
	RatePerSecond float64 // fetch starts per second; <= 0 disables limiting
	Burst         int
	LogSkips      bool
}

// DefaultOptions returns 8 workers at 5 fetches per second.
func DefaultOptions() Options {
	return Options{Workers: 8, RatePerSecond: 5, Burst: 1}
}

// Screener runs the fetch, indicator and classification pipeline over a universe.
type Screener struct {
	Collector  *collector.Collector
	Params     calculator.Params
	Thresholds strategy.Thresholds
	Options    Options

	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a Screener. Zero-valued option fields fall back to defaults.
func New(col *collector.Collector, params calculator.Params, th strategy.Thresholds, opts Options) *Screener {
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Screener{
		Collector:  col,
		Params:     params,
		Thresholds: th,
		Options:    opts,
		limiter:    rate.NewLimiter(limit, opts.Burst),
		now:        time.Now,
	}
}

// Run resolves the universe and screens it. A universe that cannot be
// retrieved, or is empty, aborts the run with model.ErrUniverseUnavailable.
func (s *Screener) Run(ctx context.Context, provider universe.Provider) (*model.ScreenResult, error) {
	symbols, err := provider.Symbols(ctx)
	if err != nil {
		if errors.Is(err, model.ErrUniverseUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrUniverseUnavailable, err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty universe", model.ErrUniverseUnavailable)
	}
	return s.Screen(ctx, symbols)
}

// outcome is the per-symbol slot written by exactly one worker.
type outcome struct {
	ran       bool
	evaluated bool
	candidate *model.BreakoutCandidate
	skip      model.SkipReason
}

// Screen evaluates every symbol and returns candidates ranked by profit
// potential, descending, ties kept in universe order. Symbol failures are
// counted, never returned. When ctx is done no further symbols are started
// and the partial result comes back with Canceled set, along with ctx.Err().
// A deadline the rate limiter cannot fit the remaining symbols into ends the
// run the same way, with an error wrapping context.DeadlineExceeded.
func (s *Screener) Screen(ctx context.Context, symbols []string) (*model.ScreenResult, error) {
	result := &model.ScreenResult{
		StartedAt:    s.now(),
		UniverseSize: len(symbols),
		Skipped:      make(map[model.SkipReason]int),
	}
	log.Printf("[INFO] screening %d symbols with %d workers", len(symbols), s.Options.Workers)

	slots := make([]outcome, len(symbols))
	var g errgroup.Group
	g.SetLimit(s.Options.Workers)

	var stopErr error
	for i, symbol := range symbols {
		if stopErr = ctx.Err(); stopErr != nil {
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			// Wait gives up early when the next token lands past the deadline
			if stopErr = ctx.Err(); stopErr == nil {
				stopErr = fmt.Errorf("%w: %d of %d symbols not scheduled: %v",
					context.DeadlineExceeded, len(symbols)-i, len(symbols), err)
			}
			break
		}
		i, symbol := i, symbol
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = s.screenSymbol(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range slots {
		if !o.ran {
			continue
		}
		if !o.evaluated {
			result.Skipped[o.skip]++
			continue
		}
		result.Evaluated++
		if o.candidate != nil {
			result.Candidates = append(result.Candidates, o.candidate)
		}
	}
	Rank(result.Candidates)
	result.FinishedAt = s.now()

	log.Printf("[INFO] screening finished: %d symbols, %d evaluated, %d skipped, %d candidates in %s",
		result.UniverseSize, result.Evaluated, result.SkippedTotal(), len(result.Candidates),
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	if stopErr == nil {
		stopErr = ctx.Err()
	}
	if stopErr != nil {
		result.Canceled = true
		log.Printf("[WARN] screening canceled: %v", stopErr)
		return result, stopErr
	}
	return result, nil
}

func (s *Screener) screenSymbol(ctx context.Context, symbol string) outcome {
	res := s.Collector.Fetch(ctx, symbol)
	if !res.OK() {
		if ctx.Err() != nil {
			// abandoned with the run, not a symbol failure
			return outcome{}
		}
		return s.skip(symbol, res.Err)
	}

	snap, err := calculator.ComputeSnapshot(res.Series, s.Params)
	if err != nil {
		return s.skip(symbol, err)
	}
	return outcome{
		ran:       true,
		evaluated: true,
		candidate: strategy.Classify(symbol, snap, s.Thresholds),
	}
}

func (s *Screener) skip(symbol string, err error) outcome {
	reason := model.ClassifySkip(err)
	if s.Options.LogSkips {
		log.Printf("[WARN] skip %s (%s): %v", symbol, reason, err)
	}
	return outcome{ran: true, skip: reason}
}

// Rank orders candidates by profit potential, descending. The sort is
// stable so equal values keep their incoming order.
func Rank(candidates []*model.BreakoutCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ProfitPotentialPct.GreaterThan(candidates[j].ProfitPotentialPct)
	})
}

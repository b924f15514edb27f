package collector

import (
	"context"

	"BreakoutScreener/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns up to lookbackDays calendar days of daily bars, oldest first.
	FetchDailyBars(ctx context.Context, symbol string, lookbackDays int) ([]model.OHLCV, error)
	Name() string
}

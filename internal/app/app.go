package app

import (
	"context"
	"fmt"
	"log"

	"BreakoutScreener/internal/collector"
	"BreakoutScreener/internal/config"
	"BreakoutScreener/internal/notifier"
	"BreakoutScreener/internal/recorder"
	"BreakoutScreener/internal/screener"
	"BreakoutScreener/internal/universe"
)

// App is the wired screening pipeline shared by the daemon and the Lambda handler.
type App struct {
	Screener *screener.Screener
	Universe universe.Provider
	Notifier *notifier.TelegramNotifier
	Recorder recorder.Recorder
}

// Build wires every component from cfg. The caller owns Close.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	fetcher, err := NewFetcher(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	provider, err := NewUniverse(ctx, cfg)
	if err != nil {
		return nil, err
	}

	col := collector.NewCollector(fetcher, cfg.DataSource.LookbackDays, cfg.Screener.SymbolTimeout)
	scr := screener.New(col, cfg.Params(), cfg.Thresholds(), cfg.ScreenerOptions())

	return &App{
		Screener: scr,
		Universe: provider,
		Notifier: notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy),
		Recorder: NewRecorder(cfg),
	}, nil
}

// Close releases the recorder.
func (a *App) Close() error {
	return a.Recorder.Close()
}

// NewFetcher selects the price history provider.
func NewFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case "yahoo":
		f := collector.NewYahooFetcher(ds.SymbolSuffix, cfg.Proxy)
		for k, v := range ds.SymbolMap {
			f.SymbolMap[k] = v
		}
		return f, nil
	case "alpaca":
		return collector.NewAlpacaFetcher(ds.APIKey, ds.APISecret), nil
	case "rest":
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy), nil
	case "mock":
		return &collector.MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
	}
}

// NewUniverse builds the symbol source behind a TTL cache.
func NewUniverse(ctx context.Context, cfg *config.Config) (*universe.Cache, error) {
	u := cfg.Universe
	var src universe.Source
	switch u.Source {
	case "csv":
		src = universe.NewCSVSource(u.URL, u.SymbolColumn, cfg.Proxy)
	case "static":
		src = &universe.StaticSource{List: u.Symbols}
	default:
		return nil, fmt.Errorf("unknown universe source %q", u.Source)
	}

	var store universe.Store
	switch u.Cache {
	case "memory":
		store = universe.NewMemoryStore()
	case "file":
		store = universe.NewFileStore(u.CacheFile)
	case "dynamodb":
		ds, err := universe.NewDynamoStore(ctx, u.AWSRegion, u.DynamoTable)
		if err != nil {
			return nil, fmt.Errorf("init dynamodb universe store: %w", err)
		}
		store = ds
	default:
		return nil, fmt.Errorf("unknown universe cache %q", u.Cache)
	}
	log.Printf("[INFO] universe: %s source, %s cache, ttl %s", u.Source, u.Cache, u.CacheTTL)
	return universe.NewCache(src, store, u.CacheTTL), nil
}

// NewRecorder opens the configured run history store, falling back to a no-op recorder.
func NewRecorder(cfg *config.Config) recorder.Recorder {
	switch cfg.Database.Driver {
	case "sqlite":
		r, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			return recorder.NewNoopRecorder()
		}
		return r
	case "postgres":
		r, err := recorder.NewPostgresRecorder(cfg.Database.PostgresDSN)
		if err != nil {
			log.Printf("[WARN] init postgres recorder failed, using noop: %v", err)
			return recorder.NewNoopRecorder()
		}
		return r
	default:
		return recorder.NewNoopRecorder()
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BreakoutScreener/internal/calculator"
	"BreakoutScreener/internal/screener"
	"BreakoutScreener/internal/strategy"
	"BreakoutScreener/internal/universe"
)

// Config holds all application configuration.
type Config struct {
	Universe struct {
		Source       string        `yaml:"source"` // "csv" or "static"
		URL          string        `yaml:"url"`
		SymbolColumn string        `yaml:"symbol_column"`
		Symbols      []string      `yaml:"symbols"`
		Cache        string        `yaml:"cache"` // "memory", "file" or "dynamodb"
		CacheTTL     time.Duration `yaml:"cache_ttl"`
		CacheFile    string        `yaml:"cache_file"`
		DynamoTable  string        `yaml:"dynamodb_table"`
		AWSRegion    string        `yaml:"aws_region"`
	} `yaml:"universe"`
	DataSource struct {
		Provider     string            `yaml:"provider"` // "yahoo", "alpaca", "rest" or "mock"
		SymbolSuffix string            `yaml:"symbol_suffix"`
		SymbolMap    map[string]string `yaml:"symbol_map"`
		LookbackDays int               `yaml:"lookback_days"`
		BaseURL      string            `yaml:"base_url"`
		APIKey       string            `yaml:"api_key"`
		APISecret    string            `yaml:"api_secret"`
	} `yaml:"data_source"`
	Screener struct {
		Workers       int           `yaml:"workers"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		Burst         int           `yaml:"burst"`
		SymbolTimeout time.Duration `yaml:"symbol_timeout"`
		LogSkips      bool          `yaml:"log_skips"`
	} `yaml:"screener"`
	Strategy struct {
		RSIPeriod             int     `yaml:"rsi_period"`
		MACDFast              int     `yaml:"macd_fast"`
		MACDSlow              int     `yaml:"macd_slow"`
		MACDSignal            int     `yaml:"macd_signal"`
		RollingWindow         int     `yaml:"rolling_window"`
		MinBars               int     `yaml:"min_bars"`
		NearHigh20Ratio       float64 `yaml:"near_high20_ratio"`
		NearLookbackHighRatio float64 `yaml:"near_lookback_high_ratio"`
		VolumeSpikeRatio      float64 `yaml:"volume_spike_ratio"`
		RSIMin                float64 `yaml:"rsi_min"`
		MACDDiffMin           float64 `yaml:"macd_diff_min"`
	} `yaml:"strategy"`
	Schedule struct {
		Cron     string `yaml:"cron"`
		Timezone string `yaml:"timezone"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"telegram"`
	Output struct {
		CSVPath     string `yaml:"csv_path"`
		Timestamped bool   `yaml:"timestamped"`
	} `yaml:"output"`
	Database struct {
		Driver      string `yaml:"driver"` // "sqlite", "postgres" or "none"
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Default returns a Config carrying the numeric defaults. Load unmarshals the
// YAML on top of it, so an explicit zero in the file is kept.
func Default() *Config {
	c := &Config{}
	c.Universe.CacheTTL = 24 * time.Hour
	c.DataSource.LookbackDays = 182

	opts := screener.DefaultOptions()
	c.Screener.Workers = opts.Workers
	c.Screener.RatePerSecond = opts.RatePerSecond
	c.Screener.Burst = opts.Burst
	c.Screener.SymbolTimeout = 20 * time.Second

	p := calculator.DefaultParams()
	c.Strategy.RSIPeriod = p.RSIPeriod
	c.Strategy.MACDFast = p.MACDFast
	c.Strategy.MACDSlow = p.MACDSlow
	c.Strategy.MACDSignal = p.MACDSignal
	c.Strategy.RollingWindow = p.RollingWindow
	c.Strategy.MinBars = p.MinBars
	th := strategy.DefaultThresholds()
	c.Strategy.NearHigh20Ratio = th.NearHigh20Ratio
	c.Strategy.NearLookbackHighRatio = th.NearLookbackHighRatio
	c.Strategy.VolumeSpikeRatio = th.VolumeSpikeRatio
	c.Strategy.RSIMin = th.RSIMin
	c.Strategy.MACDDiffMin = th.MACDDiffMin

	c.Telegram.TopN = 20
	c.Output.Timestamped = true
	return c
}

// Load reads .env and the YAML file, then applies environment overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	envStr(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	envStr(&c.DataSource.Provider, "DATA_PROVIDER")
	envStr(&c.DataSource.BaseURL, "DATA_BASE_URL")
	envStr(&c.DataSource.APIKey, "DATA_API_KEY")
	envStr(&c.DataSource.APIKey, "APCA_API_KEY_ID")
	envStr(&c.DataSource.APISecret, "APCA_API_SECRET_KEY")
	envInt(&c.DataSource.LookbackDays, "LOOKBACK_DAYS")
	envStr(&c.Universe.URL, "UNIVERSE_URL")
	envStr(&c.Universe.Cache, "UNIVERSE_CACHE")
	envStr(&c.Universe.DynamoTable, "DYNAMODB_TABLE")
	envStr(&c.Universe.AWSRegion, "AWS_REGION")
	envInt(&c.Screener.Workers, "SCREENER_WORKERS")
	envStr(&c.Schedule.Cron, "CRON_SCREEN")
	envStr(&c.Output.CSVPath, "CSV_PATH")
	envStr(&c.Database.Driver, "DB_DRIVER")
	envStr(&c.Database.SQLitePath, "SQLITE_PATH")
	envStr(&c.Database.PostgresDSN, "DATABASE_URL")
	envStr(&c.Proxy, "HTTPS_PROXY")
}

func (c *Config) applyDefaults() {
	if c.Universe.Source == "" {
		if len(c.Universe.Symbols) > 0 {
			c.Universe.Source = "static"
		} else {
			c.Universe.Source = "csv"
		}
	}
	if c.Universe.URL == "" {
		c.Universe.URL = universe.NSEEquityListURL
	}
	if c.Universe.SymbolColumn == "" {
		c.Universe.SymbolColumn = "SYMBOL"
	}
	if c.Universe.Cache == "" {
		c.Universe.Cache = "memory"
	}
	if c.Universe.CacheFile == "" {
		c.Universe.CacheFile = "data/universe.json"
	}

	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Provider == "yahoo" && c.DataSource.SymbolSuffix == "" {
		c.DataSource.SymbolSuffix = ".NS"
	}

	if c.Schedule.Cron == "" {
		// 16:15 on weekdays, after the NSE close
		c.Schedule.Cron = "0 15 16 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Asia/Kolkata"
	}
	if c.Output.CSVPath == "" {
		c.Output.CSVPath = "nse_breakout_stocks.csv"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/breakout_screener.db"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Universe.Source {
	case "csv":
		if c.Universe.URL == "" {
			return fmt.Errorf("universe.url is required for csv source")
		}
	case "static":
		if len(c.Universe.Symbols) == 0 {
			return fmt.Errorf("universe.symbols is required for static source")
		}
	default:
		return fmt.Errorf("unknown universe.source %q", c.Universe.Source)
	}
	switch c.Universe.Cache {
	case "memory", "file", "dynamodb":
	default:
		return fmt.Errorf("unknown universe.cache %q", c.Universe.Cache)
	}
	if c.Universe.CacheTTL < 0 {
		return fmt.Errorf("universe.cache_ttl must not be negative")
	}

	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "alpaca":
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return fmt.Errorf("data_source.api_key and api_secret are required for alpaca")
		}
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.DataSource.LookbackDays < c.Strategy.MinBars {
		return fmt.Errorf("data_source.lookback_days %d cannot cover %d bars", c.DataSource.LookbackDays, c.Strategy.MinBars)
	}

	if c.Screener.Workers < 1 {
		return fmt.Errorf("screener.workers must be at least 1")
	}
	if c.Screener.SymbolTimeout < 0 {
		return fmt.Errorf("screener.symbol_timeout must not be negative")
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}

	switch c.Database.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// Params returns the indicator periods.
func (c *Config) Params() calculator.Params {
	return calculator.Params{
		RSIPeriod:     c.Strategy.RSIPeriod,
		MACDFast:      c.Strategy.MACDFast,
		MACDSlow:      c.Strategy.MACDSlow,
		MACDSignal:    c.Strategy.MACDSignal,
		RollingWindow: c.Strategy.RollingWindow,
		MinBars:       c.Strategy.MinBars,
	}
}

// Thresholds returns the breakout gates.
func (c *Config) Thresholds() strategy.Thresholds {
	return strategy.Thresholds{
		NearHigh20Ratio:       c.Strategy.NearHigh20Ratio,
		NearLookbackHighRatio: c.Strategy.NearLookbackHighRatio,
		VolumeSpikeRatio:      c.Strategy.VolumeSpikeRatio,
		RSIMin:                c.Strategy.RSIMin,
		MACDDiffMin:           c.Strategy.MACDDiffMin,
	}
}

// ScreenerOptions returns the worker pool settings.
func (c *Config) ScreenerOptions() screener.Options {
	return screener.Options{
		Workers:       c.Screener.Workers,
		RatePerSecond: c.Screener.RatePerSecond,
		Burst:         c.Screener.Burst,
		LogSkips:      c.Screener.LogSkips,
	}
}

// Location returns the schedule timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScreener/internal/calculator"
	"BreakoutScreener/internal/strategy"
	"BreakoutScreener/internal/universe"
)

var overrideKeys = []string{
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DATA_PROVIDER", "DATA_BASE_URL", "DATA_API_KEY",
	"APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "LOOKBACK_DAYS", "UNIVERSE_URL", "UNIVERSE_CACHE",
	"DYNAMODB_TABLE", "AWS_REGION", "SCREENER_WORKERS", "CRON_SCREEN", "CSV_PATH", "DB_DRIVER",
	"SQLITE_PATH", "DATABASE_URL", "HTTPS_PROXY",
}

func clearEnv(t *testing.T) {
	for _, k := range overrideKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "csv", cfg.Universe.Source)
	assert.Equal(t, universe.NSEEquityListURL, cfg.Universe.URL)
	assert.Equal(t, 24*time.Hour, cfg.Universe.CacheTTL)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, ".NS", cfg.DataSource.SymbolSuffix)
	assert.Equal(t, 182, cfg.DataSource.LookbackDays)
	assert.Equal(t, 8, cfg.Screener.Workers)
	assert.Equal(t, 20*time.Second, cfg.Screener.SymbolTimeout)
	assert.Equal(t, calculator.DefaultParams(), cfg.Params())
	assert.Equal(t, strategy.DefaultThresholds(), cfg.Thresholds())
	assert.Equal(t, "nse_breakout_stocks.csv", cfg.Output.CSVPath)
	assert.True(t, cfg.Output.Timestamped)
	assert.Equal(t, "sqlite", cfg.Database.Driver)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
universe:
  symbols: [RELIANCE, TCS]
  cache: file
  cache_ttl: 6h
data_source:
  provider: rest
  base_url: http://bars.local
  lookback_days: 365
screener:
  workers: 4
  rate_per_second: 2.5
  symbol_timeout: 5s
  log_skips: true
strategy:
  rsi_min: 65
  volume_spike_ratio: 2
schedule:
  cron: "0 30 16 * * 1-5"
`)
	t.Setenv("SCREENER_WORKERS", "12")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "static", cfg.Universe.Source)
	assert.Equal(t, []string{"RELIANCE", "TCS"}, cfg.Universe.Symbols)
	assert.Equal(t, 6*time.Hour, cfg.Universe.CacheTTL)
	assert.Empty(t, cfg.DataSource.SymbolSuffix)
	assert.Equal(t, 365, cfg.DataSource.LookbackDays)
	assert.Equal(t, 12, cfg.Screener.Workers)
	assert.Equal(t, 5*time.Second, cfg.Screener.SymbolTimeout)
	assert.Equal(t, "tok", cfg.Telegram.BotToken)

	th := cfg.Thresholds()
	assert.Equal(t, 65.0, th.RSIMin)
	assert.Equal(t, 2.0, th.VolumeSpikeRatio)
	assert.Equal(t, 0.98, th.NearHigh20Ratio)

	opts := cfg.ScreenerOptions()
	assert.Equal(t, 12, opts.Workers)
	assert.Equal(t, 2.5, opts.RatePerSecond)
	assert.True(t, opts.LogSkips)
}

func TestLoad_ExplicitZerosAreKept(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
screener:
  rate_per_second: 0
strategy:
  rsi_min: 0
  macd_diff_min: 0
  volume_spike_ratio: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.Thresholds().RSIMin)
	assert.Equal(t, 0.0, cfg.ScreenerOptions().RatePerSecond, "zero rate means unlimited")
	assert.Equal(t, 8, cfg.Screener.Workers, "absent keys keep their defaults")
	assert.Equal(t, 0.98, cfg.Thresholds().NearHigh20Ratio)

	// a zero ratio is rejected rather than replaced
	assert.Error(t, cfg.Validate())
	cfg.Strategy.VolumeSpikeRatio = 1.5
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "universe: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"alpaca without keys", func(c *Config) { c.DataSource.Provider = "alpaca" }},
		{"rest without url", func(c *Config) { c.DataSource.Provider = "rest" }},
		{"static without symbols", func(c *Config) { c.Universe.Source = "static" }},
		{"unknown cache", func(c *Config) { c.Universe.Cache = "redis" }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "tok" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"bad macd", func(c *Config) { c.Strategy.MACDFast = 40 }},
		{"bad rsi threshold", func(c *Config) { c.Strategy.RSIMin = 150 }},
		{"short lookback", func(c *Config) { c.DataSource.LookbackDays = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

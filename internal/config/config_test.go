package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbsim/internal/apperror"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "arbsim", cfg.App.Name)
	assert.Len(t, cfg.Market.Venues, 5)
	assert.Len(t, cfg.Market.Instruments, 6)
	assert.Equal(t, 100, cfg.Market.HistoryDepth)
	assert.Equal(t, 250*time.Millisecond, cfg.Arbitrage.TickInterval)
	assert.Equal(t, 5*time.Second, cfg.Arbitrage.InsightInterval)
	assert.Equal(t, float64(5), cfg.Arbitrage.MinMarginBps)
	assert.Equal(t, "5", cfg.Arbitrage.MinMarginBpsDecimal().String())
	assert.Equal(t, 100, cfg.Arbitrage.TradeLedgerCap)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arbsim.yaml")
	yaml := `
market:
  venues:
    - id: alpha
      name: Alpha
      latency_ms: 3
    - id: beta
      name: Beta
      latency_ms: 8
  instruments:
    - symbol: EUR/USD
      base_price: 1.085
      volatility_index: 1
      spread_bps: 1
      min_volume: 1000
      max_volume: 2000
arbitrage:
  tick_interval: 100ms
  min_margin_bps: 7.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("ARB_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	require.Len(t, cfg.Market.Venues, 2)
	assert.Equal(t, "beta", cfg.Market.Venues[1].ID)
	assert.Equal(t, 8, cfg.Market.Venues[1].LatencyMs)
	assert.Equal(t, 100*time.Millisecond, cfg.Arbitrage.TickInterval)
	assert.Equal(t, 7.5, cfg.Arbitrage.MinMarginBps)
}

func validConfig() Config {
	return Config{
		Market: MarketConfig{
			Venues:       DefaultVenues(),
			Instruments:  DefaultInstruments(),
			HistoryDepth: 100,
			SpreadFloor:  0.0001,
			Reversion:    0.02,
		},
		Arbitrage: ArbitrageConfig{
			TickInterval:       250 * time.Millisecond,
			MinMarginBps:       5,
			TradeLedgerCap:     100,
			InsightLedgerCap:   100,
			InsightInterval:    5 * time.Second,
			InsightProbability: 0.5,
			Reporter:           "log",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"single_venue", func(c *Config) { c.Market.Venues = c.Market.Venues[:1] }},
		{"no_instruments", func(c *Config) { c.Market.Instruments = nil }},
		{"duplicate_venue", func(c *Config) { c.Market.Venues[1].ID = c.Market.Venues[0].ID }},
		{"empty_venue_id", func(c *Config) { c.Market.Venues[0].ID = "" }},
		{"duplicate_symbol", func(c *Config) { c.Market.Instruments[1].Symbol = c.Market.Instruments[0].Symbol }},
		{"zero_base_price", func(c *Config) { c.Market.Instruments[0].BasePrice = 0 }},
		{"negative_volatility", func(c *Config) { c.Market.Instruments[0].VolatilityIndex = -1 }},
		{"inverted_volume", func(c *Config) { c.Market.Instruments[0].MaxVolume = 0 }},
		{"zero_tick", func(c *Config) { c.Arbitrage.TickInterval = 0 }},
		{"tiny_ledger", func(c *Config) { c.Arbitrage.TradeLedgerCap = 1 }},
		{"bad_probability", func(c *Config) { c.Arbitrage.InsightProbability = 1.5 }},
		{"zero_floor", func(c *Config) { c.Market.SpreadFloor = 0 }},
		{"unknown_reporter", func(c *Config) { c.Arbitrage.Reporter = "tui" }},
	}

	base := validConfig()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, apperror.CodeConfigurationError, apperror.GetCode(err))
		})
	}
}

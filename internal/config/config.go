// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/arbsim/internal/apperror"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Market    MarketConfig    `mapstructure:"market"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	API       APIConfig       `mapstructure:"api"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// VenueConfig describes one simulated trading venue.
type VenueConfig struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	LatencyMs int    `mapstructure:"latency_ms"`
}

// InstrumentConfig describes one tradable instrument.
type InstrumentConfig struct {
	Symbol          string  `mapstructure:"symbol"`
	BasePrice       float64 `mapstructure:"base_price"`
	VolatilityIndex float64 `mapstructure:"volatility_index"`
	// SpreadBps is the typical quoted spread relative to price.
	SpreadBps float64 `mapstructure:"spread_bps"`
	// Volume bounds for the simulated size of an opportunity.
	MinVolume float64 `mapstructure:"min_volume"`
	MaxVolume float64 `mapstructure:"max_volume"`
}

// MarketConfig holds catalog and simulation settings.
type MarketConfig struct {
	Venues       []VenueConfig      `mapstructure:"venues"`
	Instruments  []InstrumentConfig `mapstructure:"instruments"`
	HistoryDepth int                `mapstructure:"history_depth"`
	SpreadFloor  float64            `mapstructure:"spread_floor"`
	Reversion    float64            `mapstructure:"reversion"`
	// Seed fixes the random source; 0 means entropy seeded.
	Seed uint64 `mapstructure:"seed"`
}

// ArbitrageConfig holds scanning, execution and insight settings.
type ArbitrageConfig struct {
	TickInterval             time.Duration `mapstructure:"tick_interval"`
	MinMarginBps             float64       `mapstructure:"min_margin_bps"`
	TradeLedgerCap           int           `mapstructure:"trade_ledger_cap"`
	InsightLedgerCap         int           `mapstructure:"insight_ledger_cap"`
	InsightInterval          time.Duration `mapstructure:"insight_interval"`
	InsightProbability       float64       `mapstructure:"insight_probability"`
	AutoExecute              bool          `mapstructure:"auto_execute"`
	AutoExecuteMinConfidence float64       `mapstructure:"auto_execute_min_confidence"`
	// ReportEvery prints the ranked list every N ticks.
	ReportEvery int `mapstructure:"report_every"`
	// Reporter is one of "console", "log" or "none".
	Reporter string `mapstructure:"reporter"`
}

// MinMarginBpsDecimal returns the minimum margin as decimal.Decimal.
func (c *ArbitrageConfig) MinMarginBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinMarginBps)
}

// APIConfig holds the HTTP gateway settings.
type APIConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	Port              int     `mapstructure:"port"`
	ExecuteRatePerSec float64 `mapstructure:"execute_rate_per_sec"`
	ExecuteBurst      int     `mapstructure:"execute_burst"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("read config"), apperror.WithCause(err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unmarshal config"), apperror.WithCause(err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Market
	v.BindEnv("market.seed", "ARB_SEED")
	v.BindEnv("market.history_depth", "ARB_HISTORY_DEPTH")

	// Arbitrage
	v.BindEnv("arbitrage.tick_interval", "ARB_TICK_INTERVAL")
	v.BindEnv("arbitrage.min_margin_bps", "ARB_MIN_MARGIN_BPS")
	v.BindEnv("arbitrage.auto_execute", "ARB_AUTO_EXECUTE")
	v.BindEnv("arbitrage.reporter", "ARB_REPORTER")

	// API
	v.BindEnv("api.enabled", "ARB_API_ENABLED")
	v.BindEnv("api.port", "ARB_API_PORT", "PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "arbsim")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Market defaults
	v.SetDefault("market.venues", DefaultVenues())
	v.SetDefault("market.instruments", DefaultInstruments())
	v.SetDefault("market.history_depth", 100)
	v.SetDefault("market.spread_floor", 0.0001)
	v.SetDefault("market.reversion", 0.02)
	v.SetDefault("market.seed", 0)

	// Arbitrage defaults
	v.SetDefault("arbitrage.tick_interval", "250ms")
	v.SetDefault("arbitrage.min_margin_bps", 5)
	v.SetDefault("arbitrage.trade_ledger_cap", 100)
	v.SetDefault("arbitrage.insight_ledger_cap", 100)
	v.SetDefault("arbitrage.insight_interval", "5s")
	v.SetDefault("arbitrage.insight_probability", 0.7)
	v.SetDefault("arbitrage.auto_execute", false)
	v.SetDefault("arbitrage.auto_execute_min_confidence", 0.85)
	v.SetDefault("arbitrage.report_every", 20)
	v.SetDefault("arbitrage.reporter", "log")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.execute_rate_per_sec", 20)
	v.SetDefault("api.execute_burst", 5)

	// Health defaults
	v.SetDefault("health.port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbsim")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// DefaultVenues is the built-in venue catalog.
func DefaultVenues() []VenueConfig {
	return []VenueConfig{
		{ID: "lmax", Name: "LMAX Exchange", LatencyMs: 4},
		{ID: "ebs", Name: "EBS Market", LatencyMs: 7},
		{ID: "currenex", Name: "Currenex", LatencyMs: 11},
		{ID: "hotspot", Name: "Cboe FX Hotspot", LatencyMs: 9},
		{ID: "integral", Name: "Integral OCX", LatencyMs: 15},
	}
}

// DefaultInstruments is the built-in instrument catalog.
func DefaultInstruments() []InstrumentConfig {
	return []InstrumentConfig{
		{Symbol: "EUR/USD", BasePrice: 1.0850, VolatilityIndex: 1.0, SpreadBps: 0.9, MinVolume: 100_000, MaxVolume: 5_000_000},
		{Symbol: "GBP/USD", BasePrice: 1.2710, VolatilityIndex: 1.2, SpreadBps: 1.1, MinVolume: 100_000, MaxVolume: 3_000_000},
		{Symbol: "USD/JPY", BasePrice: 149.50, VolatilityIndex: 1.1, SpreadBps: 0.8, MinVolume: 100_000, MaxVolume: 4_000_000},
		{Symbol: "AUD/USD", BasePrice: 0.6580, VolatilityIndex: 1.3, SpreadBps: 1.4, MinVolume: 50_000, MaxVolume: 2_000_000},
		{Symbol: "XAU/USD", BasePrice: 2350.0, VolatilityIndex: 3.0, SpreadBps: 2.5, MinVolume: 10, MaxVolume: 500},
		{Symbol: "BTC/USD", BasePrice: 64000.0, VolatilityIndex: 8.0, SpreadBps: 4.0, MinVolume: 0.1, MaxVolume: 25},
	}
}

// Validate checks the configuration. Every failure is a CONFIGURATION_ERROR
// and must stop the process.
func (c *Config) Validate() error {
	if len(c.Market.Venues) < 2 {
		return apperror.Configuration("market.venues needs at least two venues")
	}
	if len(c.Market.Instruments) == 0 {
		return apperror.Configuration("market.instruments cannot be empty")
	}

	venues := make(map[string]struct{}, len(c.Market.Venues))
	for i, v := range c.Market.Venues {
		if v.ID == "" {
			return apperror.Configuration(fmt.Sprintf("market.venues[%d].id is required", i))
		}
		if _, dup := venues[v.ID]; dup {
			return apperror.Configuration(fmt.Sprintf("duplicate venue id %q", v.ID))
		}
		if v.LatencyMs < 0 {
			return apperror.Configuration(fmt.Sprintf("venue %q has negative latency", v.ID))
		}
		venues[v.ID] = struct{}{}
	}

	symbols := make(map[string]struct{}, len(c.Market.Instruments))
	for i, in := range c.Market.Instruments {
		if in.Symbol == "" {
			return apperror.Configuration(fmt.Sprintf("market.instruments[%d].symbol is required", i))
		}
		if _, dup := symbols[in.Symbol]; dup {
			return apperror.Configuration(fmt.Sprintf("duplicate instrument %q", in.Symbol))
		}
		if in.BasePrice <= 0 {
			return apperror.Configuration(fmt.Sprintf("instrument %q base_price must be positive", in.Symbol))
		}
		if in.VolatilityIndex < 0 {
			return apperror.Configuration(fmt.Sprintf("instrument %q volatility_index must not be negative", in.Symbol))
		}
		if in.MaxVolume < in.MinVolume {
			return apperror.Configuration(fmt.Sprintf("instrument %q max_volume below min_volume", in.Symbol))
		}
		symbols[in.Symbol] = struct{}{}
	}

	if c.Market.HistoryDepth <= 0 {
		return apperror.Configuration("market.history_depth must be positive")
	}
	if c.Market.SpreadFloor <= 0 {
		return apperror.Configuration("market.spread_floor must be positive")
	}
	if c.Market.Reversion < 0 || c.Market.Reversion >= 1 {
		return apperror.Configuration("market.reversion must be in [0, 1)")
	}
	if c.Arbitrage.TickInterval <= 0 {
		return apperror.Configuration("arbitrage.tick_interval must be positive")
	}
	if c.Arbitrage.MinMarginBps < 0 {
		return apperror.Configuration("arbitrage.min_margin_bps must not be negative")
	}
	if c.Arbitrage.TradeLedgerCap < 2 {
		return apperror.Configuration("arbitrage.trade_ledger_cap must hold at least one trade pair")
	}
	if c.Arbitrage.InsightLedgerCap <= 0 {
		return apperror.Configuration("arbitrage.insight_ledger_cap must be positive")
	}
	if c.Arbitrage.InsightInterval <= 0 {
		return apperror.Configuration("arbitrage.insight_interval must be positive")
	}
	if p := c.Arbitrage.InsightProbability; p < 0 || p > 1 {
		return apperror.Configuration("arbitrage.insight_probability must be in [0, 1]")
	}
	switch c.Arbitrage.Reporter {
	case "console", "log", "none":
	default:
		return apperror.Configuration(fmt.Sprintf("unknown arbitrage.reporter %q", c.Arbitrage.Reporter))
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StrategyConfig selects and parameterizes the signal strategy
type StrategyConfig struct {
	Type        string `mapstructure:"type"`
	ShortWindow int    `mapstructure:"short_window"`
	LongWindow  int    `mapstructure:"long_window"`
}

// RiskConfig holds the exit thresholds and sizing limits
type RiskConfig struct {
	StopLossPct     float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64 `mapstructure:"take_profit_pct"`
	MaxPositionSize float64 `mapstructure:"max_position_size"`
}

// BinanceConfig holds exchange API credentials. APISecretEnc is the
// encrypted form (iv:tag:ciphertext hex), decrypted at startup when set.
type BinanceConfig struct {
	APIKey       string `mapstructure:"api_key"`
	APISecret    string `mapstructure:"api_secret"`
	APISecretEnc string `mapstructure:"api_secret_enc"`
}

// Config is the full application configuration
type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	Symbol          string        `mapstructure:"symbol"`
	Interval        string        `mapstructure:"interval"`
	BaseAssetAmount float64       `mapstructure:"base_asset_amount"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`

	Risk     RiskConfig     `mapstructure:"risk"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Binance  BinanceConfig  `mapstructure:"binance"`

	// TickStoreDSN enables the Postgres tick archive when non-empty
	TickStoreDSN string `mapstructure:"tick_store_dsn"`
}

// Load reads configuration from the given YAML file (optional) with
// CROSSBOT_-prefixed environment variables taking precedence. An empty path
// falls back to ./config.yaml if present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CROSSBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so keys
	// without a default need an explicit binding to be readable from the
	// environment
	for _, key := range []string{
		"binance.api_key",
		"binance.api_secret",
		"binance.api_secret_enc",
		"tick_store_dsn",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			// A missing file is fine, defaults and env carry the run
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults supplies a runnable baseline so the server starts with no
// config file at all
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("symbol", "BTCUSDT")
	v.SetDefault("interval", "1m")
	v.SetDefault("base_asset_amount", 0.001)
	v.SetDefault("tick_interval", "5s")
	v.SetDefault("risk.stop_loss_pct", 0.02)
	v.SetDefault("risk.take_profit_pct", 0.03)
	v.SetDefault("risk.max_position_size", 0.1)
	v.SetDefault("strategy.type", "sma")
	v.SetDefault("strategy.short_window", 7)
	v.SetDefault("strategy.long_window", 25)
}

// Validate rejects configurations that cannot produce a working engine.
// Strategy window constraints are owned by the strategy constructors.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol must not be empty")
	}
	if c.Interval == "" {
		return fmt.Errorf("interval must not be empty")
	}
	if c.BaseAssetAmount <= 0 {
		return fmt.Errorf("base_asset_amount must be positive, got %v", c.BaseAssetAmount)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.StopLossPct >= 1 {
		return fmt.Errorf("risk.stop_loss_pct must be in (0, 1), got %v", c.Risk.StopLossPct)
	}
	if c.Risk.TakeProfitPct <= 0 {
		return fmt.Errorf("risk.take_profit_pct must be positive, got %v", c.Risk.TakeProfitPct)
	}
	return nil
}

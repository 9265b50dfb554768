// Package config loads runtime configuration from defaults, an optional
// YAML file, and PRICETRACK_* environment variables, in increasing
// precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration surface.
type Config struct {
	// DefaultCurrency is the ISO code recorded when a price string
	// carries no currency signal.
	DefaultCurrency string `mapstructure:"default_currency"`
	// SimilarityThreshold is the identity match cutoff in (0, 1].
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// TrendFlatThresholdPct is the band around zero treated as flat.
	TrendFlatThresholdPct float64 `mapstructure:"trend_flat_threshold_pct"`
	// TrendWindowDays is the default analysis window.
	TrendWindowDays int `mapstructure:"trend_window_days"`
	// DedupGranularity is the observation dedup bucket. Only "day" is
	// supported.
	DedupGranularity string `mapstructure:"dedup_granularity"`

	// Store selects the observation backend: memory, postgres, clickhouse.
	Store string `mapstructure:"store"`
	// PostgresDSN connects identity and observation storage.
	PostgresDSN string `mapstructure:"postgres_dsn"`
	// ClickhouseDSN connects observation history storage.
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`

	// ServerAddr is the HTTP query API listen address.
	ServerAddr string `mapstructure:"server_addr"`
	// MetricsAddr is the Prometheus listen address.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load reads configuration. path optionally names a YAML file; a missing
// file is an error, but an empty path skips file loading entirely.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("default_currency", "USD")
	v.SetDefault("similarity_threshold", 0.6)
	v.SetDefault("trend_flat_threshold_pct", 1.0)
	v.SetDefault("trend_window_days", 7)
	v.SetDefault("dedup_granularity", "day")
	v.SetDefault("store", "memory")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("clickhouse_dsn", "")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("metrics_addr", ":9090")

	v.SetEnvPrefix("PRICETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.DefaultCurrency == "" {
		return fmt.Errorf("default_currency must not be empty")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.TrendFlatThresholdPct < 0 {
		return fmt.Errorf("trend_flat_threshold_pct must not be negative, got %v", c.TrendFlatThresholdPct)
	}
	if c.TrendWindowDays <= 0 {
		return fmt.Errorf("trend_window_days must be positive, got %d", c.TrendWindowDays)
	}
	if c.DedupGranularity != "day" {
		return fmt.Errorf("dedup_granularity %q is not supported, only \"day\"", c.DedupGranularity)
	}
	switch c.Store {
	case "memory", "postgres", "clickhouse":
	default:
		return fmt.Errorf("store %q is not supported", c.Store)
	}
	if c.Store == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("postgres store requires postgres_dsn")
	}
	if c.Store == "clickhouse" {
		if c.ClickhouseDSN == "" {
			return fmt.Errorf("clickhouse store requires clickhouse_dsn")
		}
		if c.PostgresDSN == "" {
			return fmt.Errorf("clickhouse store requires postgres_dsn for identities")
		}
	}
	return nil
}

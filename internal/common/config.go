// Package common provides shared utilities for altbench
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for altbench
type Config struct {
	Environment string        `toml:"environment"`
	Client      ClientConfig  `toml:"client"`
	Storage     StorageConfig `toml:"storage"`
	Fetch       FetchConfig   `toml:"fetch"`
	Index       IndexConfig   `toml:"index"`
	Logging     LoggingConfig `toml:"logging"`
}

// ClientConfig holds price-history API client configuration
type ClientConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	CallsPerMinute int    `toml:"calls_per_minute"`
	Timeout        string `toml:"timeout"`
	MaxRetries     int    `toml:"max_retries"`
}

// GetTimeout parses and returns the HTTP timeout duration
func (c *ClientConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// StorageConfig holds file storage configuration
type StorageConfig struct {
	Path string `toml:"path"`
}

// FetchConfig holds fetch coordinator configuration
type FetchConfig struct {
	Workers      int    `toml:"workers"`
	TopCoins     int    `toml:"top_coins"`
	HistoryStart string `toml:"history_start"` // earliest date ever requested, YYYY-MM-DD
}

// GetHistoryStart parses the configured history start date.
// Falls back to 2010-01-01, early enough to cover any listed asset.
func (c *FetchConfig) GetHistoryStart() time.Time {
	t, err := time.Parse("2006-01-02", c.HistoryStart)
	if err != nil {
		return time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// IndexConfig holds composite index configuration
type IndexConfig struct {
	TopN            int    `toml:"top_n"`
	SmoothingWindow int    `toml:"smoothing_window"`
	QuoteCurrency   string `toml:"quote_currency"`
	MinHistoryDate  string `toml:"min_history_date"` // per-asset trend eligibility cutoff, YYYY-MM-DD
}

// GetMinHistoryDate parses the minimum-history cutoff used by per-asset
// trend eligibility. The index engine itself never applies this filter.
func (c *IndexConfig) GetMinHistoryDate() time.Time {
	t, err := time.Parse("2006-01-02", c.MinHistoryDate)
	if err != nil {
		return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	FilePath   string `toml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Client: ClientConfig{
			BaseURL:        "https://min-api.cryptocompare.com",
			CallsPerMinute: 30,
			Timeout:        "30s",
			MaxRetries:     5,
		},
		Storage: StorageConfig{
			Path: "data",
		},
		Fetch: FetchConfig{
			Workers:      4,
			TopCoins:     300,
			HistoryStart: "2011-06-01",
		},
		Index: IndexConfig{
			TopN:            50,
			SmoothingWindow: 28,
			QuoteCurrency:   "BTC",
			MinHistoryDate:  "2024-01-10",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			FilePath:   "",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ALTBENCH_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("ALTBENCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("ALTBENCH_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if key := os.Getenv("ALTBENCH_API_KEY"); key != "" {
		config.Client.APIKey = key
	}
	if key := os.Getenv("CRYPTOCOMPARE_API_KEY"); key != "" && config.Client.APIKey == "" {
		config.Client.APIKey = key
	}

	if quote := os.Getenv("ALTBENCH_QUOTE_CURRENCY"); quote != "" {
		config.Index.QuoteCurrency = strings.ToUpper(quote)
	}

	if n := os.Getenv("ALTBENCH_TOP_N"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			config.Index.TopN = v
		}
	}

	if w := os.Getenv("ALTBENCH_SMOOTHING_WINDOW"); w != "" {
		if v, err := strconv.Atoi(w); err == nil {
			config.Index.SmoothingWindow = v
		}
	}
}

// validate rejects configuration the pipeline cannot run with.
func validate(config *Config) error {
	if config.Index.TopN < 1 {
		return fmt.Errorf("index.top_n must be at least 1, got %d", config.Index.TopN)
	}
	if config.Index.SmoothingWindow < 1 {
		return fmt.Errorf("index.smoothing_window must be at least 1, got %d", config.Index.SmoothingWindow)
	}
	quote := strings.ToUpper(config.Index.QuoteCurrency)
	if quote != "BTC" && quote != "USD" {
		return fmt.Errorf("index.quote_currency must be BTC or USD, got %q", config.Index.QuoteCurrency)
	}
	config.Index.QuoteCurrency = quote
	if config.Fetch.Workers < 1 {
		config.Fetch.Workers = 1
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

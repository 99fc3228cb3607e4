// Package app wires configuration, storage, the history client and the
// services into one initialized core shared by the CLI commands.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/altbench/altbench/internal/clients/cryptocompare"
	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/interfaces"
	"github.com/altbench/altbench/internal/services/classify"
	"github.com/altbench/altbench/internal/services/fetch"
	"github.com/altbench/altbench/internal/services/index"
	"github.com/altbench/altbench/internal/storage/seriesfs"
)

// App holds all initialized services, the client, and storage.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.SeriesStore
	Client      interfaces.HistoryClient
	Filter      *classify.Filter
	Fetcher     *fetch.Service
	Engine      *index.Engine
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, the history client and services.
// configPath may be empty, in which case the default resolution logic
// is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Check provided path, ALTBENCH_CONFIG, then binary dir, then
	// the development fallback.
	if configPath == "" {
		configPath = os.Getenv("ALTBENCH_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "altbench.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/altbench.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to the binary directory.
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := seriesfs.NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Client.APIKey == "" {
		logger.Warn().Msg("API key not configured - rate limits will be tight")
	}

	opts := []cryptocompare.ClientOption{
		cryptocompare.WithLogger(logger),
		cryptocompare.WithRateLimit(config.Client.CallsPerMinute),
		cryptocompare.WithTimeout(config.Client.GetTimeout()),
		cryptocompare.WithMaxRetries(config.Client.MaxRetries),
	}
	if config.Client.BaseURL != "" {
		opts = append(opts, cryptocompare.WithBaseURL(config.Client.BaseURL))
	}
	client := cryptocompare.NewClient(config.Client.APIKey, opts...)

	a := &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		Client:      client,
		Filter:      classify.NewFilter(),
		Fetcher:     fetch.NewService(store, client, logger, config.Fetch.Workers, config.Fetch.GetHistoryStart()),
		Engine:      index.NewEngine(logger, config.Index.TopN, config.Index.SmoothingWindow),
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases resources held by the App.
func (a *App) Close() {
	if s, ok := a.Store.(*seriesfs.Store); ok {
		s.Close()
	}
}

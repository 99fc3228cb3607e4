package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 50, config.Index.TopN)
	assert.Equal(t, 28, config.Index.SmoothingWindow)
	assert.Equal(t, "BTC", config.Index.QuoteCurrency)
	assert.Equal(t, 4, config.Fetch.Workers)
	assert.Equal(t, 30*time.Second, config.Client.GetTimeout())
	assert.False(t, config.IsProduction())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "altbench.toml")
	content := `
environment = "production"

[index]
top_n = 25
smoothing_window = 14
quote_currency = "usd"

[fetch]
workers = 8
history_start = "2015-08-07"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, 25, config.Index.TopN)
	assert.Equal(t, 14, config.Index.SmoothingWindow)
	assert.Equal(t, "USD", config.Index.QuoteCurrency, "quote is normalized to upper case")
	assert.Equal(t, 8, config.Fetch.Workers)
	assert.Equal(t, time.Date(2015, 8, 7, 0, 0, 0, 0, time.UTC), config.Fetch.GetHistoryStart())

	// Untouched sections keep their defaults.
	assert.Equal(t, 30, config.Client.CallsPerMinute)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 50, config.Index.TopN)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ALTBENCH_LOG_LEVEL", "debug")
	t.Setenv("ALTBENCH_TOP_N", "10")
	t.Setenv("ALTBENCH_QUOTE_CURRENCY", "usd")
	t.Setenv("CRYPTOCOMPARE_API_KEY", "from-provider-env")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 10, config.Index.TopN)
	assert.Equal(t, "USD", config.Index.QuoteCurrency)
	assert.Equal(t, "from-provider-env", config.Client.APIKey)
}

func TestLoadConfigAPIKeyPrecedence(t *testing.T) {
	t.Setenv("ALTBENCH_API_KEY", "primary")
	t.Setenv("CRYPTOCOMPARE_API_KEY", "fallback")

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "primary", config.Client.APIKey)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"top_n zero", map[string]string{"ALTBENCH_TOP_N": "0"}, "top_n"},
		{"window zero", map[string]string{"ALTBENCH_SMOOTHING_WINDOW": "0"}, "smoothing_window"},
		{"bad quote", map[string]string{"ALTBENCH_QUOTE_CURRENCY": "EUR"}, "quote_currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// Package interfaces defines service contracts for altbench
package interfaces

import (
	"context"
	"time"

	"github.com/altbench/altbench/internal/models"
)

// HistoryClient provides access to the remote daily price-history API.
type HistoryClient interface {
	// GetDailyHistory retrieves daily OHLCV bars for symbol quoted in
	// quote, covering [from, to] inclusive, ascending by date and
	// deduplicated. Ranges beyond the provider's per-call day limit are
	// paginated internally.
	GetDailyHistory(ctx context.Context, symbol, quote string, from, to time.Time) ([]models.DailyBar, error)

	// GetTopCoins retrieves the top n coins by market capitalization.
	GetTopCoins(ctx context.Context, n int) ([]models.Coin, error)
}

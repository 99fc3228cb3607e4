package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/models"
	"github.com/altbench/altbench/internal/services/index"
	"github.com/altbench/altbench/internal/services/report"
	"github.com/altbench/altbench/internal/services/trend"
)

// ErrInsufficientHistory is returned when an asset's stored series does
// not reach back to the configured minimum history date.
var ErrInsufficientHistory = errors.New("asset history starts after the minimum history date")

// ErrNoEligibleAssets is returned when an index build finds no eligible
// asset with stored price data. The build aborts before writing, so the
// previously persisted index stays untouched.
var ErrNoEligibleAssets = errors.New("no eligible assets with stored price data")

// RefreshUniverse pulls the market-cap listing, classifies it, persists
// the accepted universe and writes the skip record for review.
func (a *App) RefreshUniverse(ctx context.Context) (*models.Universe, error) {
	coins, err := a.Client.GetTopCoins(ctx, a.Config.Fetch.TopCoins)
	if err != nil {
		return nil, fmt.Errorf("failed to list top coins: %w", err)
	}

	a.Filter.Reset()
	accepted := a.Filter.DownloadSet(coins)

	universe := &models.Universe{Coins: accepted, FetchedAt: time.Now().UTC()}
	if err := a.Store.SaveUniverse(ctx, universe); err != nil {
		return nil, err
	}

	if csvData, err := a.Filter.SkippedCSV(); err == nil {
		if err := a.Store.WriteRaw("reports", "download_skipped.csv", csvData); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to write skip record")
		}
	}

	a.Logger.Info().
		Int("listed", len(coins)).
		Int("accepted", len(accepted)).
		Int("skipped", len(coins)-len(accepted)).
		Msg("Universe refreshed")

	return universe, nil
}

// universe returns the stored universe, refreshing it when absent.
func (a *App) universe(ctx context.Context) (*models.Universe, error) {
	u, err := a.Store.LoadUniverse(ctx)
	if err == nil && len(u.Coins) > 0 {
		return u, nil
	}
	return a.RefreshUniverse(ctx)
}

// FetchAll brings every universe asset's price table current up to
// yesterday. Failed assets are reported, not fatal. With full set, the
// stored price tables are discarded first so every history is
// re-downloaded from the configured start.
func (a *App) FetchAll(ctx context.Context, full bool) (map[string][]models.DailyBar, []*models.AssetError, error) {
	u, err := a.universe(ctx)
	if err != nil {
		return nil, nil, err
	}
	if full {
		removed := a.Store.PurgePrices()
		a.Logger.Info().Int("removed", removed).Msg("Full refresh, price tables discarded")
	}
	series, failures := a.Fetcher.EnsureAll(ctx, u.Coins, a.Config.Index.QuoteCurrency)
	return series, failures, nil
}

// BuildIndex recomputes the composite index and its composition from
// the stored price tables of index-eligible assets, then persists both.
func (a *App) BuildIndex(ctx context.Context) (*index.Result, error) {
	u, err := a.universe(ctx)
	if err != nil {
		return nil, err
	}

	eligible := a.Filter.IndexSet(u.Coins)
	series := make(map[string][]models.DailyBar, len(eligible))
	for _, coin := range eligible {
		key := models.NewSeriesKey(coin.ID, a.Config.Index.QuoteCurrency)
		bars, err := a.Store.LoadSeries(ctx, key)
		if err != nil {
			a.Logger.Warn().Str("pair", key.String()).Err(err).Msg("Skipping unreadable series")
			continue
		}
		if len(bars) > 0 {
			series[coin.ID] = bars
		}
	}

	// A run that would produce nothing must not clobber prior output.
	if len(series) == 0 {
		return nil, ErrNoEligibleAssets
	}

	result, err := a.Engine.Compute(series)
	if err != nil {
		return nil, err
	}
	if len(result.Index) == 0 {
		return nil, fmt.Errorf("no index days computed from %d assets", result.AssetsProcessed)
	}

	if err := a.Store.SaveIndex(ctx, result.Index); err != nil {
		return nil, err
	}
	if err := a.Store.SaveComposition(ctx, result.Composition); err != nil {
		return nil, err
	}
	return result, nil
}

// Comparison is the output of comparing one asset against the composite.
type Comparison struct {
	AssetID   string
	Asset     []models.SeriesPoint // normalized, backfilled
	Benchmark []models.SeriesPoint // normalized
	Trend     *trend.Fit           // nil when the series is too short
	ChartFile string
}

// Compare backfills and normalizes the asset against the stored
// composite, fits a linear trend, renders the comparison chart and
// writes it under charts/.
func (a *App) Compare(ctx context.Context, assetID string) (*Comparison, error) {
	key := models.NewSeriesKey(assetID, a.Config.Index.QuoteCurrency)
	bars, err := a.Store.LoadSeries(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no stored series for %s", key)
	}
	if models.FirstDate(bars).After(a.Config.Index.GetMinHistoryDate()) {
		return nil, fmt.Errorf("%w: %s starts %s", ErrInsufficientHistory,
			key.AssetID, models.FirstDate(bars).Format("2006-01-02"))
	}

	composite, err := a.Store.LoadIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("composite index not built: %w", err)
	}

	benchmark := models.IndexPoints(composite)
	assetPoints, err := index.Backfill(models.ClosePoints(bars), benchmark)
	if err != nil {
		return nil, fmt.Errorf("backfill %s: %w", key.AssetID, err)
	}

	assetNorm := index.Normalize(assetPoints)
	benchNorm := index.Normalize(benchmark)

	cmp := &Comparison{AssetID: key.AssetID, Asset: assetNorm, Benchmark: benchNorm}

	fit, err := trend.Linear(assetNorm)
	if err != nil {
		a.Logger.Debug().Str("asset", key.AssetID).Err(err).Msg("Trend fit skipped")
	} else {
		cmp.Trend = fit
	}

	title := fmt.Sprintf("%s vs composite (%s)", key.AssetID, a.Config.Index.QuoteCurrency)
	png, err := report.RenderComparisonChart(title, assetNorm, benchNorm)
	if err != nil {
		return nil, err
	}
	name := key.String() + ".png"
	if err := a.Store.WriteRaw("charts", name, png); err != nil {
		return nil, err
	}
	cmp.ChartFile = name

	a.Logger.Info().Str("asset", key.AssetID).Str("chart", name).Msg("Comparison rendered")
	return cmp, nil
}

// CompareAll runs Compare over every stored pair in the configured
// quote currency. Assets with too little history or no overlap are
// collected as failures, not fatal.
func (a *App) CompareAll(ctx context.Context) ([]*Comparison, []*models.AssetError) {
	keys, err := a.Store.ListPairs(ctx)
	if err != nil {
		return nil, []*models.AssetError{{AssetID: "*", Err: err}}
	}

	var out []*Comparison
	var failures []*models.AssetError
	for _, key := range keys {
		if key.QuoteCurrency != a.Config.Index.QuoteCurrency {
			continue
		}
		// Bitcoin is stored for charting but is not compared against
		// the composite it is excluded from.
		if exclude, _ := a.Filter.ExcludeFromIndex(models.Coin{ID: key.AssetID, Symbol: key.AssetID}); exclude {
			continue
		}
		cmp, err := a.Compare(ctx, key.AssetID)
		if err != nil {
			failures = append(failures, &models.AssetError{AssetID: key.AssetID, Err: err})
			continue
		}
		out = append(out, cmp)
	}
	return out, failures
}

// Status summarizes the stored state.
type Status struct {
	Pairs       int
	IndexDays   int
	IndexFirst  time.Time
	IndexLast   time.Time
	UniverseAge time.Duration
}

// Status reports what is on disk: pair count, index coverage and
// universe freshness.
func (a *App) Status(ctx context.Context) (*Status, error) {
	pairs, err := a.Store.ListPairs(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Pairs: len(pairs)}

	if rows, err := a.Store.LoadIndex(ctx); err == nil && len(rows) > 0 {
		st.IndexDays = len(rows)
		st.IndexFirst = common.Day(rows[0].Date)
		st.IndexLast = common.Day(rows[len(rows)-1].Date)
	}
	if u, err := a.Store.LoadUniverse(ctx); err == nil {
		st.UniverseAge = time.Since(u.FetchedAt)
	}
	return st, nil
}

// Purge removes stored data. Prices and index output are purged
// independently; both return counts of removed tables.
func (a *App) Purge(prices, indexData bool) (pricesRemoved, indexRemoved int) {
	if prices {
		pricesRemoved = a.Store.PurgePrices()
	}
	if indexData {
		indexRemoved = a.Store.PurgeIndex()
	}
	a.Logger.Info().Int("prices", pricesRemoved).Int("index", indexRemoved).Msg("Purge complete")
	return pricesRemoved, indexRemoved
}

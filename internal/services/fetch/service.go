// Package fetch coordinates incremental price-history updates.
package fetch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/interfaces"
	"github.com/altbench/altbench/internal/models"
)

// ErrNoData is returned when a full-history fetch yields no usable bars
// for an asset. Zero rows is a data error, not an empty table.
var ErrNoData = errors.New("no price data returned")

// Service decides the date range still needed per asset, requests it
// from the history client, and merges it into the series store.
type Service struct {
	store        interfaces.SeriesStore
	client       interfaces.HistoryClient
	logger       *common.Logger
	workers      int
	historyStart time.Time

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

// NewService creates a new fetch coordinator.
func NewService(store interfaces.SeriesStore, client interfaces.HistoryClient, logger *common.Logger, workers int, historyStart time.Time) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		store:        store,
		client:       client,
		logger:       logger,
		workers:      workers,
		historyStart: common.Day(historyStart),
		now:          time.Now,
	}
}

// cutoff returns the latest fetchable date: the most recent completed
// UTC day. Today's bar is never fetched.
func (s *Service) cutoff() time.Time {
	return common.Day(s.now().UTC()).AddDate(0, 0, -1)
}

// EnsureCurrent guarantees the stored series for key is complete up to
// yesterday and returns it. When the stored table already covers the
// cutoff no network call is made.
func (s *Service) EnsureCurrent(ctx context.Context, key models.SeriesKey, symbol string) ([]models.DailyBar, error) {
	existing, err := s.store.LoadSeries(ctx, key)
	if err != nil {
		return nil, &models.AssetError{AssetID: key.AssetID, Err: err}
	}

	cutoff := s.cutoff()

	if len(existing) > 0 {
		latest := models.LastDate(existing)
		if !latest.Before(cutoff) {
			return existing, nil
		}

		from := latest.AddDate(0, 0, 1)
		bars, err := s.client.GetDailyHistory(ctx, symbol, key.QuoteCurrency, from, cutoff)
		if err != nil {
			return nil, &models.AssetError{AssetID: key.AssetID, Err: err}
		}
		if len(bars) == 0 {
			return existing, nil
		}

		merged, err := s.store.MergeSeries(ctx, key, bars)
		if err != nil {
			return nil, &models.AssetError{AssetID: key.AssetID, Err: err}
		}
		s.logger.Debug().Str("pair", key.String()).Int("new_bars", len(bars)).Msg("Incremental fetch merged")
		return merged, nil
	}

	// Never fetched: request the full history up to the cutoff.
	bars, err := s.client.GetDailyHistory(ctx, symbol, key.QuoteCurrency, s.historyStart, cutoff)
	if err != nil {
		return nil, &models.AssetError{AssetID: key.AssetID, Err: err}
	}
	bars = trimLeadingEmpty(bars)
	if len(bars) == 0 {
		return nil, &models.AssetError{AssetID: key.AssetID, Err: ErrNoData}
	}

	merged, err := s.store.MergeSeries(ctx, key, bars)
	if err != nil {
		return nil, &models.AssetError{AssetID: key.AssetID, Err: err}
	}
	s.logger.Debug().Str("pair", key.String()).Int("bars", len(merged)).Msg("Full history fetched")
	return merged, nil
}

// EnsureAll runs EnsureCurrent over every coin with a bounded worker
// pool. Each asset's table is disjoint, so workers share no mutable
// state. One asset's failure never aborts the batch; failures are
// collected and returned alongside the successful series.
func (s *Service) EnsureAll(ctx context.Context, coins []models.Coin, quote string) (map[string][]models.DailyBar, []*models.AssetError) {
	runID := uuid.NewString()
	s.logger.Info().Str("run_id", runID).Int("assets", len(coins)).Int("workers", s.workers).Msg("Fetch run started")

	type result struct {
		id   string
		bars []models.DailyBar
		err  *models.AssetError
	}

	jobs := make(chan models.Coin)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for coin := range jobs {
				key := models.NewSeriesKey(coin.ID, quote)
				bars, err := s.EnsureCurrent(ctx, key, coin.Symbol)
				r := result{id: coin.ID, bars: bars}
				if err != nil {
					var ae *models.AssetError
					if errors.As(err, &ae) {
						r.err = ae
					} else {
						r.err = &models.AssetError{AssetID: coin.ID, Err: err}
					}
				}
				results <- r
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, coin := range coins {
			select {
			case jobs <- coin:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	series := make(map[string][]models.DailyBar, len(coins))
	var failures []*models.AssetError
	for r := range results {
		if r.err != nil {
			s.logger.Warn().Str("run_id", runID).Str("asset", r.id).Err(r.err).Msg("Asset fetch failed")
			failures = append(failures, r.err)
			continue
		}
		if len(r.bars) > 0 {
			series[r.id] = r.bars
		}
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].AssetID < failures[j].AssetID })

	s.logger.Info().Str("run_id", runID).
		Int("fetched", len(series)).
		Int("failed", len(failures)).
		Msg("Fetch run finished")

	return series, failures
}

// trimLeadingEmpty drops leading zero-close rows. The provider returns
// zero-filled bars for dates before an asset was listed.
func trimLeadingEmpty(bars []models.DailyBar) []models.DailyBar {
	for i, b := range bars {
		if b.Close > 0 {
			return bars[i:]
		}
	}
	return nil
}

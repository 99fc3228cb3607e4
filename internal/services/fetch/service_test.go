package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/models"
	"github.com/altbench/altbench/internal/storage/seriesfs"
)

// stubClient returns canned bars and counts history calls.
type stubClient struct {
	mu      sync.Mutex
	calls   int
	history map[string][]models.DailyBar // keyed by symbol
	err     map[string]error
	gotFrom time.Time
	gotTo   time.Time
}

func (c *stubClient) GetDailyHistory(_ context.Context, symbol, _ string, from, to time.Time) ([]models.DailyBar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.gotFrom, c.gotTo = from, to
	if err := c.err[symbol]; err != nil {
		return nil, err
	}

	var out []models.DailyBar
	for _, b := range c.history[symbol] {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *stubClient) GetTopCoins(context.Context, int) ([]models.Coin, error) {
	return nil, errors.New("not implemented")
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestService(t *testing.T, client *stubClient, now time.Time) (*Service, *seriesfs.Store) {
	t.Helper()
	store, err := seriesfs.NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)

	svc := NewService(store, client, common.NewSilentLogger(), 2, mustDay("2024-01-01"))
	svc.now = func() time.Time { return now }
	return svc, store
}

func mustDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func dailyRange(start string, closes ...float64) []models.DailyBar {
	d := mustDay(start)
	out := make([]models.DailyBar, len(closes))
	for i, c := range closes {
		out[i] = models.DailyBar{Date: d.AddDate(0, 0, i), Close: c, VolumeTo: 100}
	}
	return out
}

func TestEnsureCurrentFullHistory(t *testing.T) {
	client := &stubClient{history: map[string][]models.DailyBar{
		"ETH": dailyRange("2024-03-01", 0.05, 0.06, 0.07),
	}}
	// now is 2024-03-04 12:00 UTC, so the cutoff is 2024-03-03.
	svc, _ := newTestService(t, client, mustDay("2024-03-04").Add(12*time.Hour))

	bars, err := svc.EnsureCurrent(context.Background(), models.NewSeriesKey("eth", "BTC"), "ETH")
	require.NoError(t, err)

	require.Len(t, bars, 3)
	assert.Equal(t, mustDay("2024-01-01"), client.gotFrom, "full history starts at the configured floor")
	assert.Equal(t, mustDay("2024-03-03"), client.gotTo, "today's bar is never requested")
}

func TestEnsureCurrentCachedNoNetwork(t *testing.T) {
	client := &stubClient{history: map[string][]models.DailyBar{
		"ETH": dailyRange("2024-03-01", 0.05, 0.06, 0.07),
	}}
	svc, _ := newTestService(t, client, mustDay("2024-03-04").Add(12*time.Hour))
	ctx := context.Background()
	key := models.NewSeriesKey("eth", "BTC")

	first, err := svc.EnsureCurrent(ctx, key, "ETH")
	require.NoError(t, err)
	require.Equal(t, 1, client.callCount())

	second, err := svc.EnsureCurrent(ctx, key, "ETH")
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount(), "current table must not trigger a fetch")
	assert.Equal(t, first, second)
}

func TestEnsureCurrentIncremental(t *testing.T) {
	client := &stubClient{history: map[string][]models.DailyBar{
		"ETH": dailyRange("2024-03-01", 0.05, 0.06, 0.07, 0.08, 0.09),
	}}
	svc, store := newTestService(t, client, mustDay("2024-03-06").Add(time.Hour))
	ctx := context.Background()
	key := models.NewSeriesKey("eth", "BTC")

	// Seed the first two days, then the service only asks for the gap.
	_, err := store.MergeSeries(ctx, key, dailyRange("2024-03-01", 0.05, 0.06))
	require.NoError(t, err)

	bars, err := svc.EnsureCurrent(ctx, key, "ETH")
	require.NoError(t, err)

	require.Len(t, bars, 5)
	assert.Equal(t, mustDay("2024-03-03"), client.gotFrom)
	assert.Equal(t, mustDay("2024-03-05"), client.gotTo)
	assert.Equal(t, 0.09, bars[4].Close)
}

func TestEnsureCurrentTrimsPrelistingZeros(t *testing.T) {
	history := append(dailyRange("2024-02-28", 0, 0), dailyRange("2024-03-01", 0.05, 0.06)...)
	for i := range history[:2] {
		history[i].VolumeTo = 0
	}
	client := &stubClient{history: map[string][]models.DailyBar{"ETH": history}}
	svc, _ := newTestService(t, client, mustDay("2024-03-03").Add(time.Hour))

	bars, err := svc.EnsureCurrent(context.Background(), models.NewSeriesKey("eth", "BTC"), "ETH")
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, mustDay("2024-03-01"), bars[0].Date)
}

func TestEnsureAllCollectsFailures(t *testing.T) {
	client := &stubClient{
		history: map[string][]models.DailyBar{
			"ETH": dailyRange("2024-03-01", 0.05, 0.06),
			"SOL": dailyRange("2024-03-01", 0.003, 0.004),
		},
		err: map[string]error{"BAD": errors.New("market does not exist")},
	}
	svc, _ := newTestService(t, client, mustDay("2024-03-03").Add(time.Hour))

	coins := []models.Coin{
		{ID: "sol", Symbol: "SOL"},
		{ID: "bad", Symbol: "BAD"},
		{ID: "eth", Symbol: "ETH"},
	}
	series, failures := svc.EnsureAll(context.Background(), coins, "BTC")

	assert.Len(t, series, 2)
	assert.Contains(t, series, "eth")
	assert.Contains(t, series, "sol")

	require.Len(t, failures, 1)
	assert.Equal(t, "bad", failures[0].AssetID)
}

func TestEnsureCurrentZeroRowsIsError(t *testing.T) {
	// All-zero pre-listing rows trim down to nothing; zero rows is a
	// data error, never an empty table.
	client := &stubClient{history: map[string][]models.DailyBar{
		"GHOST": dailyRange("2024-03-01", 0, 0),
	}}
	svc, _ := newTestService(t, client, mustDay("2024-03-03").Add(time.Hour))

	_, err := svc.EnsureCurrent(context.Background(), models.NewSeriesKey("ghost", "BTC"), "GHOST")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestEnsureAllSurfacesZeroRowAssets(t *testing.T) {
	client := &stubClient{history: map[string][]models.DailyBar{
		"ETH": dailyRange("2024-03-01", 0.05, 0.06),
	}}
	svc, _ := newTestService(t, client, mustDay("2024-03-03").Add(time.Hour))

	series, failures := svc.EnsureAll(context.Background(), []models.Coin{
		{ID: "eth", Symbol: "ETH"},
		{ID: "ghost", Symbol: "GHOST"},
	}, "BTC")

	assert.Len(t, series, 1)
	assert.Contains(t, series, "eth")

	require.Len(t, failures, 1)
	assert.Equal(t, "ghost", failures[0].AssetID)
	assert.ErrorIs(t, failures[0], ErrNoData)
}

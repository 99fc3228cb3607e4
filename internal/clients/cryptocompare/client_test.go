package cryptocompare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altbench/altbench/internal/common"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key",
		WithBaseURL(server.URL),
		WithLogger(common.NewSilentLogger()),
		WithRateLimit(6000),
		WithMaxRetries(2),
	)
}

func histodayBody(records []histodayRecord) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"Response": "Success",
		"Data":     map[string]interface{}{"Data": records},
	})
	return body
}

func dayTs(s string) int64 {
	t, _ := time.Parse("2006-01-02", s)
	return t.Unix()
}

func TestGetDailyHistorySinglePage(t *testing.T) {
	var gotAuth string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/data/v2/histoday", r.URL.Path)
		assert.Equal(t, "ETH", r.URL.Query().Get("fsym"))
		assert.Equal(t, "BTC", r.URL.Query().Get("tsym"))

		w.Write(histodayBody([]histodayRecord{
			{Time: dayTs("2024-03-01"), Close: 0.05, VolumeTo: 100},
			{Time: dayTs("2024-03-02"), Close: 0.06, VolumeTo: 120},
			{Time: dayTs("2024-03-03"), Close: 0.07, VolumeTo: 130},
		}))
	})

	bars, err := client.GetDailyHistory(context.Background(), "eth", "btc",
		mustDay("2024-03-01"), mustDay("2024-03-03"))
	require.NoError(t, err)
	assert.Equal(t, "Apikey test-key", gotAuth)

	require.Len(t, bars, 3)
	assert.Equal(t, 0.05, bars[0].Close)
	assert.True(t, bars[0].Date.Before(bars[2].Date))
}

func TestGetDailyHistoryFiltersOutOfRange(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(histodayBody([]histodayRecord{
			{Time: dayTs("2024-02-28"), Close: 0.04},
			{Time: dayTs("2024-03-01"), Close: 0.05},
			{Time: dayTs("2024-03-02"), Close: 0.06},
		}))
	})

	bars, err := client.GetDailyHistory(context.Background(), "eth", "btc",
		mustDay("2024-03-01"), mustDay("2024-03-02"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, mustDay("2024-03-01"), bars[0].Date)
}

func TestGetDailyHistoryEmptyRange(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an inverted range")
	})

	bars, err := client.GetDailyHistory(context.Background(), "eth", "btc",
		mustDay("2024-03-03"), mustDay("2024-03-01"))
	require.NoError(t, err)
	assert.Nil(t, bars)
}

func TestGetDailyHistoryMarketNotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"Response": "Error",
			"Message":  "There is no data for any of the toSymbols BTC. ... market does not exist for this coin pair",
		})
	})

	_, err := client.GetDailyHistory(context.Background(), "nope", "btc",
		mustDay("2024-03-01"), mustDay("2024-03-02"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDailyHistoryRateLimitRetries(t *testing.T) {
	var calls int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(histodayBody([]histodayRecord{{Time: dayTs("2024-03-01"), Close: 0.05}}))
	})

	bars, err := client.GetDailyHistory(context.Background(), "eth", "btc",
		mustDay("2024-03-01"), mustDay("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, bars, 1)
}

func TestGetDailyHistoryRateLimitExhausted(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetDailyHistory(context.Background(), "eth", "btc",
		mustDay("2024-03-01"), mustDay("2024-03-01"))
	var rle *RateLimitError
	assert.ErrorAs(t, err, &rle)
}

func TestGetDailyHistoryServerError(t *testing.T) {
	var calls int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.GetDailyHistory(context.Background(), "eth", "btc",
		mustDay("2024-03-01"), mustDay("2024-03-01"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, 1, calls, "server errors are not retried")
}

func TestGetTopCoinsPaginates(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/top/mktcapfull", r.URL.Path)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		entries := make([]map[string]interface{}, coinsPerPage)
		for i := range entries {
			n := page*coinsPerPage + i
			entries[i] = map[string]interface{}{
				"CoinInfo": map[string]string{
					"Name":     fmt.Sprintf("C%03d", n),
					"FullName": fmt.Sprintf("Coin %03d", n),
				},
				"RAW": map[string]interface{}{
					"USD": map[string]float64{"PRICE": 1, "MKTCAP": float64(1000000 - n)},
				},
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"Data": entries})
	})

	coins, err := client.GetTopCoins(context.Background(), 150)
	require.NoError(t, err)
	require.Len(t, coins, 150)
	assert.Equal(t, "c000", coins[0].ID)
	assert.Equal(t, 1, coins[0].MarketCapRank)
	assert.Equal(t, "c149", coins[149].ID)
	assert.Equal(t, 150, coins[149].MarketCapRank)
}

func mustDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

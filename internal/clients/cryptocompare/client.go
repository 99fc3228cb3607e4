// Package cryptocompare provides a client for the CryptoCompare min-API
package cryptocompare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/interfaces"
	"github.com/altbench/altbench/internal/models"
)

const (
	DefaultBaseURL        = "https://min-api.cryptocompare.com"
	DefaultTimeout        = 30 * time.Second
	DefaultCallsPerMinute = 30
	DefaultMaxRetries     = 5

	// MaxDaysPerRequest is the provider's hard per-call limit for histoday.
	MaxDaysPerRequest = 2000

	coinsPerPage = 100
)

// ErrNotFound is returned when the provider has no market for a symbol.
var ErrNotFound = errors.New("symbol not listed")

// RateLimitError is returned once the provider's request ceiling is hit
// and the bounded retry budget is exhausted.
type RateLimitError struct {
	Endpoint string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("CryptoCompare rate limit exceeded (endpoint: %s)", e.Endpoint)
}

// APIError represents any other provider-side failure.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CryptoCompare API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client implements the HistoryClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	maxRetries int
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the request ceiling in calls per minute
func WithRateLimit(callsPerMinute int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), 1)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries caps the retry attempts for rate-limited requests
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// NewClient creates a new CryptoCompare client. The API key is optional
// for basic access.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(float64(DefaultCallsPerMinute)/60.0), 1),
		maxRetries: DefaultMaxRetries,
		logger:     common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a rate-limited GET request with bounded exponential
// backoff on rate-limit responses.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}
		err := c.doGet(ctx, path, params, result)
		var rle *RateLimitError
		if errors.As(err, &rle) {
			c.logger.Warn().Str("endpoint", path).Msg("Rate limited, backing off")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)),
		ctx,
	)
	return backoff.Retry(op, policy)
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+c.apiKey)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("CryptoCompare API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{Endpoint: path}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// The provider reports errors in-band with a 200 status.
	var envelope struct {
		Response string `json:"Response"`
		Message  string `json:"Message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Response == "Error" {
		if strings.Contains(strings.ToLower(envelope.Message), "market does not exist") {
			return fmt.Errorf("%w: %s", ErrNotFound, envelope.Message)
		}
		if strings.Contains(strings.ToLower(envelope.Message), "rate limit") {
			return &RateLimitError{Endpoint: path}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    envelope.Message,
			Endpoint:   path,
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// histodayRecord is one daily bar as returned by /data/v2/histoday.
type histodayRecord struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	VolumeFrom float64 `json:"volumefrom"`
	VolumeTo   float64 `json:"volumeto"`
}

type histodayResponse struct {
	Data struct {
		Data []histodayRecord `json:"Data"`
	} `json:"Data"`
}

// getDailyPage fetches up to MaxDaysPerRequest bars ending at toTs.
func (c *Client) getDailyPage(ctx context.Context, symbol, quote string, toTs int64) ([]histodayRecord, error) {
	params := url.Values{}
	params.Set("fsym", strings.ToUpper(symbol))
	params.Set("tsym", strings.ToUpper(quote))
	params.Set("limit", strconv.Itoa(MaxDaysPerRequest))
	if toTs > 0 {
		params.Set("toTs", strconv.FormatInt(toTs, 10))
	}

	var resp histodayResponse
	if err := c.get(ctx, "/data/v2/histoday", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Data, nil
}

// GetDailyHistory retrieves daily OHLCV bars covering [from, to],
// paginating backwards through the provider's per-call day limit.
// The result is ascending by date and deduplicated by day.
func (c *Client) GetDailyHistory(ctx context.Context, symbol, quote string, from, to time.Time) ([]models.DailyBar, error) {
	from = common.Day(from)
	to = common.Day(to)
	if to.Before(from) {
		return nil, nil
	}

	startTs := from.Unix()
	// End of the final day, so the provider includes its bar.
	currentToTs := to.Unix() + 86399

	byDay := make(map[int64]histodayRecord)

	for {
		records, err := c.getDailyPage(ctx, symbol, quote, currentToTs)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}

		oldest := int64(1<<62 - 1)
		for _, r := range records {
			if r.Time < oldest {
				oldest = r.Time
			}
			if r.Time >= startTs && r.Time <= to.Unix()+86399 {
				byDay[common.Day(time.Unix(r.Time, 0)).Unix()] = r
			}
		}

		if oldest <= startTs {
			break
		}
		if len(records) < MaxDaysPerRequest {
			// Provider has no earlier data.
			break
		}

		// Step past the oldest record to avoid refetching it.
		currentToTs = oldest - 86400
	}

	if len(byDay) == 0 {
		return nil, nil
	}

	bars := make([]models.DailyBar, 0, len(byDay))
	for day, r := range byDay {
		bars = append(bars, models.DailyBar{
			Date:       time.Unix(day, 0).UTC(),
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			VolumeFrom: r.VolumeFrom,
			VolumeTo:   r.VolumeTo,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return bars, nil
}

// mktcapResponse is one entry of /data/top/mktcapfull.
type mktcapResponse struct {
	Data []struct {
		CoinInfo struct {
			Name     string `json:"Name"`
			FullName string `json:"FullName"`
		} `json:"CoinInfo"`
		Raw map[string]struct {
			Price             float64 `json:"PRICE"`
			MarketCap         float64 `json:"MKTCAP"`
			Volume24Hour      float64 `json:"VOLUME24HOUR"`
			CirculatingSupply float64 `json:"CIRCULATINGSUPPLY"`
		} `json:"RAW"`
	} `json:"Data"`
}

// GetTopCoins retrieves the top n coins by market capitalization,
// paginated 100 per page.
func (c *Client) GetTopCoins(ctx context.Context, n int) ([]models.Coin, error) {
	coins := make([]models.Coin, 0, n)
	page := 0

	for len(coins) < n {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(coinsPerPage))
		params.Set("page", strconv.Itoa(page))
		params.Set("tsym", "USD")

		var resp mktcapResponse
		if err := c.get(ctx, "/data/top/mktcapfull", params, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			break
		}

		for _, entry := range resp.Data {
			raw, ok := entry.Raw["USD"]
			if !ok {
				continue
			}
			coins = append(coins, models.Coin{
				ID:                strings.ToLower(entry.CoinInfo.Name),
				Symbol:            entry.CoinInfo.Name,
				Name:              entry.CoinInfo.FullName,
				MarketCap:         raw.MarketCap,
				MarketCapRank:     len(coins) + 1,
				CurrentPrice:      raw.Price,
				Volume24h:         raw.Volume24Hour,
				CirculatingSupply: raw.CirculatingSupply,
			})
			if len(coins) >= n {
				break
			}
		}

		page++
		if len(resp.Data) < coinsPerPage {
			break
		}
	}

	return coins, nil
}

// Ensure Client implements HistoryClient
var _ interfaces.HistoryClient = (*Client)(nil)

// Package models defines data structures for altbench
package models

import (
	"fmt"
	"strings"
	"time"
)

// DailyBar represents a single completed day's OHLCV data for one
// asset-pair. Dates are midnight UTC; exactly one bar exists per day.
// VolumeTo is turnover in the quote currency and is the value used for
// ranking and weighting.
type DailyBar struct {
	Date       time.Time `json:"date"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	VolumeFrom float64   `json:"volume_from"`
	VolumeTo   float64   `json:"volume_to"`
}

// SeriesKey identifies one persisted price table.
type SeriesKey struct {
	AssetID       string `json:"asset_id"`       // lowercase symbol, e.g. "eth"
	QuoteCurrency string `json:"quote_currency"` // "BTC" or "USD"
}

// NewSeriesKey builds a normalized key (asset lowercased, quote uppercased).
func NewSeriesKey(assetID, quote string) SeriesKey {
	return SeriesKey{
		AssetID:       strings.ToLower(assetID),
		QuoteCurrency: strings.ToUpper(quote),
	}
}

// String returns the canonical pair form, e.g. "eth-btc".
func (k SeriesKey) String() string {
	return fmt.Sprintf("%s-%s", k.AssetID, strings.ToLower(k.QuoteCurrency))
}

// CompositeValue is one day of the volume-weighted composite index.
// TotalWeight is the sum of smoothed volumes over the day's constituents.
type CompositeValue struct {
	Date             time.Time `json:"date"`
	Price            float64   `json:"composite_price"`
	TotalWeight      float64   `json:"total_weight"`
	ConstituentCount int       `json:"constituent_count"`
}

// CompositionRow records one constituent of the composite index on one day.
// Rank is 1-based, strictly increasing by descending smoothed volume with
// asset id as the tie-break. Weights across a day sum to 1.0.
type CompositionRow struct {
	Date           time.Time `json:"date"`
	Rank           int       `json:"rank"`
	AssetID        string    `json:"asset_id"`
	SmoothedVolume float64   `json:"smoothed_volume"`
	Weight         float64   `json:"weight"`
	ClosePrice     float64   `json:"close_price"`
}

// SeriesPoint is one day of a single-valued comparison series
// (an asset close series, the composite index, or either after
// backfill/normalization).
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Coin describes one asset discovered from the market-cap listing.
type Coin struct {
	ID                string  `json:"id"` // lowercase symbol
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	MarketCap         float64 `json:"market_cap"`
	MarketCapRank     int     `json:"market_cap_rank"`
	CurrentPrice      float64 `json:"current_price"`
	Volume24h         float64 `json:"volume_24h"`
	CirculatingSupply float64 `json:"circulating_supply"`
}

// Universe is the persisted set of classifier-accepted coins.
type Universe struct {
	Coins     []Coin    `json:"coins"`
	FetchedAt time.Time `json:"fetched_at"`
}

// IDs returns the asset ids of all coins in the universe.
func (u *Universe) IDs() []string {
	ids := make([]string, len(u.Coins))
	for i, c := range u.Coins {
		ids[i] = c.ID
	}
	return ids
}

// AssetError carries a per-asset failure from a batch operation.
// One asset's failure never aborts the rest of the batch.
type AssetError struct {
	AssetID string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// FirstDate returns the date of the earliest bar, or the zero time for
// an empty series. Bars are stored ascending.
func FirstDate(bars []DailyBar) time.Time {
	if len(bars) == 0 {
		return time.Time{}
	}
	return bars[0].Date
}

// LastDate returns the date of the latest bar, or the zero time for an
// empty series.
func LastDate(bars []DailyBar) time.Time {
	if len(bars) == 0 {
		return time.Time{}
	}
	return bars[len(bars)-1].Date
}

// ClosePoints projects a bar series onto its close prices.
func ClosePoints(bars []DailyBar) []SeriesPoint {
	points := make([]SeriesPoint, len(bars))
	for i, b := range bars {
		points[i] = SeriesPoint{Date: b.Date, Value: b.Close}
	}
	return points
}

// IndexPoints projects composite index rows onto their prices.
func IndexPoints(index []CompositeValue) []SeriesPoint {
	points := make([]SeriesPoint, len(index))
	for i, v := range index {
		points[i] = SeriesPoint{Date: v.Date, Value: v.Price}
	}
	return points
}

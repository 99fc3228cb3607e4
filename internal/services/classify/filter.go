// Package classify decides which assets are fetched and which are
// eligible for the composite index.
//
// Two separate gates exist. The download gate skips stablecoins and
// wrapped, staked or bridged listings but keeps Bitcoin, whose series
// is still needed for comparison charts. The index gate additionally
// excludes Bitcoin itself. Neither gate ever considers an asset's age;
// membership by volume rank alone keeps completed index values stable
// when young assets gain history.
package classify

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/altbench/altbench/internal/models"
)

// Skip reasons recorded for the review export.
const (
	ReasonStablecoin    = "Stablecoin"
	ReasonWrappedStaked = "Wrapped/Staked/Bridged token"
	ReasonBTCDerivative = "BTC derivative"
	ReasonBitcoin       = "Bitcoin (quote currency)"
)

var (
	compiledPatterns  []*regexp.Regexp
	btcPattern        = regexp.MustCompile(`(?i)btc|bitcoin`)
	derivativePattern = regexp.MustCompile(`(?i)wrapped|staked|bridged|liquid|synthetic|pegged|collateral|vault|yield`)
)

func init() {
	compiledPatterns = make([]*regexp.Regexp, len(deniedPatterns))
	for i, p := range deniedPatterns {
		compiledPatterns[i] = regexp.MustCompile("(?i)" + p)
	}
}

// SkippedCoin is an asset rejected by the download gate, kept for the
// review export.
type SkippedCoin struct {
	AssetID string
	Name    string
	Symbol  string
	Reason  string
}

// Filter applies the static rule tables. The zero value is not usable;
// use NewFilter.
type Filter struct {
	skipped []SkippedCoin
}

// NewFilter creates a classifier with an empty skip record.
func NewFilter() *Filter {
	return &Filter{}
}

// Skipped returns the assets rejected so far, sorted by asset id.
func (f *Filter) Skipped() []SkippedCoin {
	out := make([]SkippedCoin, len(f.skipped))
	copy(out, f.skipped)
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// Reset clears the skip record.
func (f *Filter) Reset() {
	f.skipped = nil
}

// IsAllowed reports whether the asset is on the allow list, which
// overrides every deny rule.
func (f *Filter) IsAllowed(coin models.Coin) bool {
	if _, ok := allowedAssets[strings.ToLower(coin.ID)]; ok {
		return true
	}
	_, ok := allowedAssets[strings.ToLower(coin.Symbol)]
	return ok
}

// IsStablecoin reports whether the asset is pegged to fiat.
func (f *Filter) IsStablecoin(coin models.Coin) bool {
	if f.IsAllowed(coin) {
		return false
	}
	if _, ok := stablecoinIDs[strings.ToLower(coin.ID)]; ok {
		return true
	}
	_, ok := stablecoinSymbols[strings.ToLower(coin.Symbol)]
	return ok
}

// IsWrappedOrStaked reports whether the asset is a wrapped, staked,
// bridged or liquid-staking listing.
func (f *Filter) IsWrappedOrStaked(coin models.Coin) bool {
	if f.IsAllowed(coin) {
		return false
	}
	id := strings.ToLower(coin.ID)
	if _, ok := wrappedStakedIDs[id]; ok {
		return true
	}
	combined := id + " " + strings.ToLower(coin.Name)
	for _, p := range compiledPatterns {
		if p.MatchString(combined) {
			return true
		}
	}
	return false
}

// IsBTCDerivative reports whether the asset is a wrapped or synthetic
// Bitcoin listing. Bitcoin itself is not a derivative.
func (f *Filter) IsBTCDerivative(coin models.Coin) bool {
	if f.IsAllowed(coin) {
		return false
	}
	id := strings.ToLower(coin.ID)
	symbol := strings.ToLower(coin.Symbol)
	if id == "btc" || symbol == "btc" {
		return false
	}

	combined := id + " " + strings.ToLower(coin.Name) + " " + symbol
	if btcPattern.MatchString(combined) && derivativePattern.MatchString(combined) {
		return true
	}

	if _, ok := btcDerivativeSymbols[id]; ok {
		return true
	}
	_, ok := btcDerivativeSymbols[symbol]
	return ok
}

// SkipDownload reports whether the asset's price history should not be
// fetched, and why. Bitcoin is fetched; it is only barred from the
// index.
func (f *Filter) SkipDownload(coin models.Coin) (bool, string) {
	if f.IsAllowed(coin) {
		return false, ""
	}
	if f.IsStablecoin(coin) {
		return true, ReasonStablecoin
	}
	if f.IsWrappedOrStaked(coin) {
		return true, ReasonWrappedStaked
	}
	if f.IsBTCDerivative(coin) {
		return true, ReasonBTCDerivative
	}
	return false, ""
}

// ExcludeFromIndex reports whether the asset is barred from the
// composite, and why. Everything the download gate skips is barred,
// plus Bitcoin itself.
func (f *Filter) ExcludeFromIndex(coin models.Coin) (bool, string) {
	if f.IsAllowed(coin) {
		return false, ""
	}
	if strings.ToLower(coin.ID) == "btc" || strings.ToLower(coin.Symbol) == "btc" {
		return true, ReasonBitcoin
	}
	return f.SkipDownload(coin)
}

// DownloadSet returns the coins whose history should be fetched and
// records the rest with their skip reason.
func (f *Filter) DownloadSet(coins []models.Coin) []models.Coin {
	out := make([]models.Coin, 0, len(coins))
	for _, coin := range coins {
		if skip, reason := f.SkipDownload(coin); skip {
			f.skipped = append(f.skipped, SkippedCoin{
				AssetID: coin.ID,
				Name:    coin.Name,
				Symbol:  coin.Symbol,
				Reason:  reason,
			})
			continue
		}
		out = append(out, coin)
	}
	return out
}

// IndexSet returns the coins eligible for the composite. Nothing is
// recorded; the download gate owns the review export.
func (f *Filter) IndexSet(coins []models.Coin) []models.Coin {
	out := make([]models.Coin, 0, len(coins))
	for _, coin := range coins {
		if exclude, _ := f.ExcludeFromIndex(coin); !exclude {
			out = append(out, coin)
		}
	}
	return out
}

// SkippedCSV renders the skip record as semicolon-separated CSV for
// review in a spreadsheet.
func (f *Filter) SkippedCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write([]string{"Asset ID", "Name", "Symbol", "Reason"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range f.Skipped() {
		if err := w.Write([]string{c.AssetID, c.Name, c.Symbol, c.Reason}); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

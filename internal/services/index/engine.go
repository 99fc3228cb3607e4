// Package index computes the volume-weighted composite benchmark from
// aligned daily price tables.
package index

import (
	"sort"
	"time"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/models"
)

// Result is the output of one composite computation.
type Result struct {
	Index       []models.CompositeValue
	Composition []models.CompositionRow

	// AssetsProcessed counts input series that contributed at least one
	// defined cell to the aligned tables.
	AssetsProcessed int
}

// Engine computes the composite index. Membership is decided per day by
// smoothed trading volume alone, so a value computed for a completed day
// never changes when more assets or later dates are added.
type Engine struct {
	topN   int
	window int
	logger *common.Logger
}

// NewEngine creates a composite index engine. topN is the maximum number
// of constituents per day; window is the volume smoothing span in days.
func NewEngine(logger *common.Logger, topN, window int) *Engine {
	return &Engine{topN: topN, window: window, logger: logger}
}

// Compute derives the daily composite series and its composition from
// the given per-asset bar tables. Assets must already be filtered for
// eligibility. Days where no asset has a defined smoothed volume are
// omitted rather than emitted as zero.
func (e *Engine) Compute(series map[string][]models.DailyBar) (*Result, error) {
	assets := make([]string, 0, len(series))
	for id, bars := range series {
		if len(bars) > 0 {
			assets = append(assets, id)
		}
	}
	sort.Strings(assets)

	if len(assets) == 0 {
		return &Result{}, nil
	}

	closeTbl, volumeTbl := buildAlignedTables(series, assets)
	smoothed := smooth(volumeTbl, e.window)

	e.logger.Debug().
		Int("assets", len(assets)).
		Int("days", len(closeTbl.Dates)).
		Int("window", e.window).
		Msg("Aligned tables built")

	result := &Result{AssetsProcessed: len(assets)}

	for i, date := range closeTbl.Dates {
		members := e.selectConstituents(smoothed, closeTbl, i)
		if len(members) == 0 {
			continue
		}

		var weighted, total float64
		for _, m := range members {
			weighted += closeTbl.at(i, m) * smoothed.at(i, m)
			total += smoothed.at(i, m)
		}
		if total <= 0 {
			continue
		}

		result.Index = append(result.Index, models.CompositeValue{
			Date:             date,
			Price:            weighted / total,
			TotalWeight:      total,
			ConstituentCount: len(members),
		})

		for rank, m := range members {
			result.Composition = append(result.Composition, models.CompositionRow{
				Date:           date,
				Rank:           rank + 1,
				AssetID:        closeTbl.Assets[m],
				SmoothedVolume: smoothed.at(i, m),
				Weight:         smoothed.at(i, m) / total,
				ClosePrice:     closeTbl.at(i, m),
			})
		}
	}

	e.logger.Info().
		Int("index_days", len(result.Index)).
		Int("composition_rows", len(result.Composition)).
		Msg("Composite index computed")

	return result, nil
}

// selectConstituents returns the column indices of the day's members,
// ordered by descending smoothed volume with asset id as the tie-break.
// The tie-break keeps the ranking deterministic across runs.
func (e *Engine) selectConstituents(smoothed, closeTbl *Table, dateIdx int) []int {
	candidates := make([]int, 0, len(smoothed.Assets))
	for j := range smoothed.Assets {
		if smoothed.defined(dateIdx, j) && smoothed.at(dateIdx, j) > 0 && closeTbl.defined(dateIdx, j) {
			candidates = append(candidates, j)
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		va, vb := smoothed.at(dateIdx, candidates[a]), smoothed.at(dateIdx, candidates[b])
		if va != vb {
			return va > vb
		}
		return smoothed.Assets[candidates[a]] < smoothed.Assets[candidates[b]]
	})

	if len(candidates) > e.topN {
		candidates = candidates[:e.topN]
	}
	return candidates
}

// CompositionOn filters composition rows to a single day.
func CompositionOn(rows []models.CompositionRow, date time.Time) []models.CompositionRow {
	day := common.Day(date)
	var out []models.CompositionRow
	for _, r := range rows {
		if common.SameDay(r.Date, day) {
			out = append(out, r)
		}
	}
	return out
}

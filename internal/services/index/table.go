package index

import (
	"math"
	"time"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/models"
)

// Table is a date×asset matrix of a single field. Rows cover every
// calendar day from the earliest to the latest date across all input
// series; columns are asset ids. Absent cells carry NaN, never zero;
// a zero volume must stay distinguishable from "no data".
type Table struct {
	Dates  []time.Time
	Assets []string
	cells  [][]float64 // [dateIdx][assetIdx]
	dateIx map[int64]int
	asset  map[string]int
}

// newTable allocates an all-absent table over the given dates and assets.
func newTable(dates []time.Time, assets []string) *Table {
	cells := make([][]float64, len(dates))
	for i := range cells {
		row := make([]float64, len(assets))
		for j := range row {
			row[j] = math.NaN()
		}
		cells[i] = row
	}

	dateIx := make(map[int64]int, len(dates))
	for i, d := range dates {
		dateIx[d.Unix()] = i
	}
	assetIx := make(map[string]int, len(assets))
	for j, a := range assets {
		assetIx[a] = j
	}

	return &Table{
		Dates:  dates,
		Assets: assets,
		cells:  cells,
		dateIx: dateIx,
		asset:  assetIx,
	}
}

// set stores a value for (date, asset); dates outside the table range
// are ignored.
func (t *Table) set(date time.Time, asset string, v float64) {
	i, ok := t.dateIx[common.Day(date).Unix()]
	if !ok {
		return
	}
	j, ok := t.asset[asset]
	if !ok {
		return
	}
	t.cells[i][j] = v
}

// at returns the cell for (dateIdx, assetIdx); NaN marks an absent cell.
func (t *Table) at(dateIdx, assetIdx int) float64 {
	return t.cells[dateIdx][assetIdx]
}

// defined reports whether the cell holds a value.
func (t *Table) defined(dateIdx, assetIdx int) bool {
	return !math.IsNaN(t.cells[dateIdx][assetIdx])
}

// calendarRange returns every calendar day from first to last inclusive.
func calendarRange(first, last time.Time) []time.Time {
	first = common.Day(first)
	last = common.Day(last)
	n := common.DaysBetween(first, last) + 1
	if n < 1 {
		return nil
	}
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[i] = first.AddDate(0, 0, i)
	}
	return dates
}

// buildAlignedTables builds the close and volume tables across the full
// date range spanned by the union of all input series.
func buildAlignedTables(series map[string][]models.DailyBar, assets []string) (closeTbl, volumeTbl *Table) {
	var first, last time.Time
	for _, id := range assets {
		bars := series[id]
		if len(bars) == 0 {
			continue
		}
		if first.IsZero() || models.FirstDate(bars).Before(first) {
			first = models.FirstDate(bars)
		}
		if last.IsZero() || models.LastDate(bars).After(last) {
			last = models.LastDate(bars)
		}
	}
	if first.IsZero() {
		return nil, nil
	}

	dates := calendarRange(first, last)
	closeTbl = newTable(dates, assets)
	volumeTbl = newTable(dates, assets)

	for _, id := range assets {
		for _, bar := range series[id] {
			closeTbl.set(bar.Date, id, bar.Close)
			volumeTbl.set(bar.Date, id, bar.VolumeTo)
		}
	}
	return closeTbl, volumeTbl
}

// smooth replaces each column with its trailing simple moving average
// over window days. A smoothed cell is defined only when every cell of
// its trailing window is defined, so an asset's first window-1 days are
// the undefined warm-up and gaps restart the warm-up.
func smooth(t *Table, window int) *Table {
	out := newTable(t.Dates, t.Assets)

	for j := range t.Assets {
		var sum float64
		run := 0 // consecutive defined cells ending at i
		for i := range t.Dates {
			if !t.defined(i, j) {
				sum = 0
				run = 0
				continue
			}
			sum += t.at(i, j)
			run++
			if run > window {
				sum -= t.at(i-window, j)
				run = window
			}
			if run == window {
				out.cells[i][j] = sum / float64(window)
			}
		}
	}
	return out
}

package index

import (
	"errors"
	"sort"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/models"
)

// ErrNoOverlap is returned when two series share no date, so no scale
// factor can be anchored.
var ErrNoOverlap = errors.New("series share no common date")

// Backfill extends asset backwards over the dates composite covers but
// asset does not. Synthetic values are the composite scaled so the two
// series agree at their earliest common date. Dates asset already has
// are returned untouched.
func Backfill(asset, composite []models.SeriesPoint) ([]models.SeriesPoint, error) {
	if len(asset) == 0 || len(composite) == 0 {
		return nil, ErrNoOverlap
	}

	assetByDay := make(map[int64]float64, len(asset))
	for _, p := range asset {
		assetByDay[common.Day(p.Date).Unix()] = p.Value
	}

	// Anchor at the earliest composite date the asset also has.
	var anchor *models.SeriesPoint
	for i := range composite {
		day := common.Day(composite[i].Date).Unix()
		if _, ok := assetByDay[day]; ok {
			anchor = &composite[i]
			break
		}
	}
	if anchor == nil || anchor.Value == 0 {
		return nil, ErrNoOverlap
	}

	scale := assetByDay[common.Day(anchor.Date).Unix()] / anchor.Value

	out := make([]models.SeriesPoint, 0, len(asset)+len(composite))
	for _, p := range composite {
		if !common.Day(p.Date).Before(common.Day(anchor.Date)) {
			break
		}
		if _, ok := assetByDay[common.Day(p.Date).Unix()]; ok {
			continue
		}
		out = append(out, models.SeriesPoint{Date: common.Day(p.Date), Value: p.Value * scale})
	}
	out = append(out, asset...)

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Normalize rebases a series so its first value is 1. Run after
// backfilling, so compared series share the same base date.
func Normalize(points []models.SeriesPoint) []models.SeriesPoint {
	if len(points) == 0 {
		return nil
	}
	base := points[0].Value
	if base == 0 {
		return nil
	}
	out := make([]models.SeriesPoint, len(points))
	for i, p := range points {
		out[i] = models.SeriesPoint{Date: p.Date, Value: p.Value / base}
	}
	return out
}

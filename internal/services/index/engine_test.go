package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// bars builds a contiguous daily series starting at start. closes and
// volumes must have equal length.
func bars(start string, closes, volumes []float64) []models.DailyBar {
	out := make([]models.DailyBar, len(closes))
	d := day(start)
	for i := range closes {
		out[i] = models.DailyBar{
			Date:     d.AddDate(0, 0, i),
			Open:     closes[i],
			High:     closes[i],
			Low:      closes[i],
			Close:    closes[i],
			VolumeTo: volumes[i],
		}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestComputeWeightedAggregation(t *testing.T) {
	// Window 1 makes the smoothed volume equal the raw volume, so the
	// expected value can be checked by hand:
	// (0.050*50000 + 0.003*30000 + 0.00002*20000) / 100000 = 0.025904
	engine := NewEngine(common.NewSilentLogger(), 50, 1)

	series := map[string][]models.DailyBar{
		"eth": bars("2024-03-01", []float64{0.050}, []float64{50000}),
		"sol": bars("2024-03-01", []float64{0.003}, []float64{30000}),
		"ada": bars("2024-03-01", []float64{0.00002}, []float64{20000}),
	}

	result, err := engine.Compute(series)
	require.NoError(t, err)
	require.Len(t, result.Index, 1)

	v := result.Index[0]
	assert.InDelta(t, 0.025904, v.Price, 1e-9)
	assert.InDelta(t, 100000, v.TotalWeight, 1e-9)
	assert.Equal(t, 3, v.ConstituentCount)
	assert.Equal(t, 3, result.AssetsProcessed)
}

func TestComputeWeightsSumToOne(t *testing.T) {
	engine := NewEngine(common.NewSilentLogger(), 50, 1)

	series := map[string][]models.DailyBar{
		"eth": bars("2024-03-01", []float64{0.05, 0.06}, []float64{50000, 40000}),
		"sol": bars("2024-03-01", []float64{0.003, 0.004}, []float64{30000, 35000}),
	}

	result, err := engine.Compute(series)
	require.NoError(t, err)
	require.Len(t, result.Index, 2)

	for _, iv := range result.Index {
		sum := 0.0
		for _, row := range CompositionOn(result.Composition, iv.Date) {
			sum += row.Weight
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "weights on %s", iv.Date)
	}
}

func TestComputeTopNAndTieBreak(t *testing.T) {
	// Equal volumes; the lexically smaller asset id must win the last
	// slot so reruns are deterministic.
	engine := NewEngine(common.NewSilentLogger(), 2, 1)

	series := map[string][]models.DailyBar{
		"zrx": bars("2024-03-01", []float64{0.01}, []float64{1000}),
		"ada": bars("2024-03-01", []float64{0.02}, []float64{1000}),
		"eth": bars("2024-03-01", []float64{0.05}, []float64{9000}),
	}

	result, err := engine.Compute(series)
	require.NoError(t, err)

	rows := result.Composition
	require.Len(t, rows, 2)
	assert.Equal(t, "eth", rows[0].AssetID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "ada", rows[1].AssetID)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestComputeWarmupExcluded(t *testing.T) {
	// 10 days of data with a 14-day window: no day ever has a defined
	// smoothed volume, so nothing is emitted.
	engine := NewEngine(common.NewSilentLogger(), 50, 14)

	series := map[string][]models.DailyBar{
		"eth": bars("2024-03-01", repeat(0.05, 10), repeat(1000, 10)),
	}

	result, err := engine.Compute(series)
	require.NoError(t, err)
	assert.Empty(t, result.Index)
	assert.Empty(t, result.Composition)
}

func TestComputeGapRestartsWarmup(t *testing.T) {
	// A one-day hole in a 3-day-window series restarts the warm-up;
	// zero volume does not (zero is a value, absence is not).
	withGap := bars("2024-03-01", repeat(0.05, 10), repeat(1000, 10))
	withGap = append(withGap[:4], withGap[5:]...) // drop 2024-03-05

	withZero := bars("2024-03-01", repeat(0.003, 10), repeat(500, 10))
	withZero[4].VolumeTo = 0

	engine := NewEngine(common.NewSilentLogger(), 50, 3)
	result, err := engine.Compute(map[string][]models.DailyBar{
		"gap":  withGap,
		"zero": withZero,
	})
	require.NoError(t, err)

	gapDays := map[string]bool{}
	for _, row := range result.Composition {
		if row.AssetID == "gap" {
			gapDays[row.Date.Format("2006-01-02")] = true
		}
	}
	// Defined from day 3 of each run of consecutive data.
	assert.True(t, gapDays["2024-03-03"])
	assert.True(t, gapDays["2024-03-04"])
	assert.False(t, gapDays["2024-03-05"], "gap day itself")
	assert.False(t, gapDays["2024-03-06"], "warm-up after gap")
	assert.False(t, gapDays["2024-03-07"])
	assert.True(t, gapDays["2024-03-08"], "window refilled")

	zeroDays := map[string]bool{}
	for _, row := range result.Composition {
		if row.AssetID == "zero" {
			zeroDays[row.Date.Format("2006-01-02")] = true
		}
	}
	// The zero-volume day stays in the window, so smoothing never
	// becomes undefined and membership continues.
	assert.True(t, zeroDays["2024-03-05"])
	assert.True(t, zeroDays["2024-03-06"])
}

func TestComputeImmutableUnderSuperset(t *testing.T) {
	// Recomputing with a late-listing high-volume asset must leave the
	// days before its window fills byte-for-byte identical.
	base := map[string][]models.DailyBar{
		"eth": bars("2024-03-01", repeat(0.05, 8), repeat(5000, 8)),
		"sol": bars("2024-03-01", repeat(0.003, 8), repeat(3000, 8)),
	}

	engine := NewEngine(common.NewSilentLogger(), 2, 2)
	before, err := engine.Compute(base)
	require.NoError(t, err)
	require.NotEmpty(t, before.Index)

	superset := map[string][]models.DailyBar{
		"eth": base["eth"],
		"sol": base["sol"],
		"new": bars("2024-03-06", repeat(0.2, 3), repeat(90000, 3)),
	}
	after, err := engine.Compute(superset)
	require.NoError(t, err)

	afterByDay := make(map[string]models.CompositeValue)
	for _, v := range after.Index {
		afterByDay[v.Date.Format("2006-01-02")] = v
	}

	for _, v := range before.Index {
		key := v.Date.Format("2006-01-02")
		if v.Date.Before(day("2024-03-07")) {
			assert.Equal(t, v, afterByDay[key], "pre-listing day %s changed", key)
		}
	}

	// Once its window fills, the newcomer displaces the smaller asset
	// purely on volume rank.
	lastDay := CompositionOn(after.Composition, day("2024-03-08"))
	require.Len(t, lastDay, 2)
	assert.Equal(t, "new", lastDay[0].AssetID)
	assert.Equal(t, "eth", lastDay[1].AssetID)
}

func TestComputeEmptyInput(t *testing.T) {
	engine := NewEngine(common.NewSilentLogger(), 50, 28)
	result, err := engine.Compute(nil)
	require.NoError(t, err)
	assert.Empty(t, result.Index)
}

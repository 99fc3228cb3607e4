// Package report renders comparison charts from normalized series.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/altbench/altbench/internal/models"
)

// RenderComparisonChart renders a PNG line chart of an asset against
// the composite benchmark. Both series should be normalized to the same
// base date. Asset in solid blue, benchmark in dashed gray.
// Returns raw PNG bytes.
func RenderComparisonChart(title string, asset, benchmark []models.SeriesPoint) ([]byte, error) {
	if len(asset) < 2 || len(benchmark) < 2 {
		return nil, fmt.Errorf("need at least 2 data points per series, got %d and %d", len(asset), len(benchmark))
	}

	assetX := make([]time.Time, len(asset))
	assetY := make([]float64, len(asset))
	for i, p := range asset {
		assetX[i] = p.Date
		assetY[i] = p.Value
	}

	benchX := make([]time.Time, len(benchmark))
	benchY := make([]float64, len(benchmark))
	for i, p := range benchmark {
		benchX[i] = p.Date
		benchY[i] = p.Value
	}

	assetSeries := chart.TimeSeries{
		Name: "Asset",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: assetX,
		YValues: assetY,
	}

	benchSeries := chart.TimeSeries{
		Name: "Benchmark",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: benchX,
		YValues: benchY,
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2fx", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			assetSeries,
			benchSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

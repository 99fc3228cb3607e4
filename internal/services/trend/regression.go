// Package trend fits linear trends to daily series.
package trend

import (
	"errors"
	"math"

	"github.com/altbench/altbench/internal/models"
)

// MinPoints is the fewest observations a fit accepts. Below this the
// slope says more about noise than trend.
const MinPoints = 30

// ErrTooFewPoints is returned when a series is too short to fit.
var ErrTooFewPoints = errors.New("too few points for trend fit")

// Fit is an ordinary least squares line over a daily series. X is days
// since the first point, Y is the series value.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
	Points    int     `json:"points"`
}

// Linear fits a least squares line to the series. Points need not be
// evenly spaced; gaps simply widen the X distance.
func Linear(points []models.SeriesPoint) (*Fit, error) {
	if len(points) < MinPoints {
		return nil, ErrTooFewPoints
	}

	n := float64(len(points))
	base := points[0].Date

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := p.Date.Sub(base).Hours() / 24
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil, ErrTooFewPoints
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	// Coefficient of determination.
	meanY := sumY / n
	var ssRes, ssTot float64
	for _, p := range points {
		x := p.Date.Sub(base).Hours() / 24
		pred := intercept + slope*x
		ssRes += (p.Value - pred) * (p.Value - pred)
		ssTot += (p.Value - meanY) * (p.Value - meanY)
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	if math.IsNaN(r2) {
		r2 = 0
	}

	return &Fit{
		Slope:     slope,
		Intercept: intercept,
		R2:        r2,
		Points:    len(points),
	}, nil
}

package interfaces

import (
	"context"

	"github.com/altbench/altbench/internal/models"
)

// SeriesStore persists per-pair daily bar tables and the derived
// composite index output.
type SeriesStore interface {
	// LoadSeries returns the stored bars for key, ascending by date.
	// A pair that has never been fetched yields (nil, nil); a corrupted
	// table is an error, never silently empty.
	LoadSeries(ctx context.Context, key models.SeriesKey) ([]models.DailyBar, error)

	// MergeSeries combines bars with the stored table. On date collision
	// the supplied bar wins. The merged table is deduplicated, sorted
	// ascending and persisted atomically before it is returned.
	MergeSeries(ctx context.Context, key models.SeriesKey, bars []models.DailyBar) ([]models.DailyBar, error)

	// SaveSeries replaces the stored table for key.
	SaveSeries(ctx context.Context, key models.SeriesKey, bars []models.DailyBar) error

	// ListPairs returns every stored series key, sorted by pair name.
	ListPairs(ctx context.Context) ([]models.SeriesKey, error)

	// DeleteSeries removes the stored table for key, if present.
	DeleteSeries(ctx context.Context, key models.SeriesKey) error

	// SaveIndex / LoadIndex persist the composite index table.
	SaveIndex(ctx context.Context, rows []models.CompositeValue) error
	LoadIndex(ctx context.Context) ([]models.CompositeValue, error)

	// SaveComposition / LoadComposition persist the daily composition table.
	SaveComposition(ctx context.Context, rows []models.CompositionRow) error
	LoadComposition(ctx context.Context) ([]models.CompositionRow, error)

	// SaveUniverse / LoadUniverse persist the accepted coin universe.
	SaveUniverse(ctx context.Context, u *models.Universe) error
	LoadUniverse(ctx context.Context) (*models.Universe, error)

	// WriteRaw writes arbitrary bytes (chart output) under a subdirectory.
	WriteRaw(subdir, name string, data []byte) error

	// PurgePrices removes all stored price tables and returns the count.
	PurgePrices() int

	// PurgeIndex removes the stored index and composition tables.
	PurgeIndex() int
}

// Package seriesfs implements file-based storage for per-pair daily
// price tables and the derived composite index output.
package seriesfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/altbench/altbench/internal/common"
	"github.com/altbench/altbench/internal/interfaces"
	"github.com/altbench/altbench/internal/models"
)

const (
	indexKey       = "composite_index"
	compositionKey = "composition"
	universeKey    = "universe"
)

// ErrCorrupt marks a stored table that exists but cannot be decoded.
// Callers decide whether to rebuild; a corrupted table is never treated
// as empty.
var ErrCorrupt = errors.New("corrupted table")

// Store provides file-based JSON storage. One file per asset-pair under
// prices/, index output under index/, chart output under charts/.
type Store struct {
	basePath  string
	pricesDir string
	indexDir  string
	logger    *common.Logger
}

// NewStore creates a new series file store rooted at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store path %s: %w", path, err)
	}
	pricesDir := filepath.Join(path, "prices")
	indexDir := filepath.Join(path, "index")
	os.MkdirAll(pricesDir, 0755)
	os.MkdirAll(indexDir, 0755)

	logger.Info().Str("path", path).Msg("Series store opened")
	return &Store{
		basePath:  path,
		pricesDir: pricesDir,
		indexDir:  indexDir,
		logger:    logger,
	}, nil
}

// DataPath returns the base data path.
func (s *Store) DataPath() string {
	return s.basePath
}

// LoadSeries returns the stored bars for key, ascending by date.
func (s *Store) LoadSeries(_ context.Context, key models.SeriesKey) ([]models.DailyBar, error) {
	path := filePath(s.pricesDir, key.String())
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var bars []models.DailyBar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return bars, nil
}

// MergeSeries combines bars with the stored table for key. On date
// collision the supplied bar wins, which lets a previously-incomplete
// trailing day be corrected. The result is deduplicated by UTC day,
// sorted ascending, and persisted as a full atomic rewrite.
func (s *Store) MergeSeries(ctx context.Context, key models.SeriesKey, bars []models.DailyBar) ([]models.DailyBar, error) {
	existing, err := s.LoadSeries(ctx, key)
	if err != nil {
		return nil, err
	}

	merged := mergeBars(existing, bars)
	if err := s.SaveSeries(ctx, key, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// SaveSeries replaces the stored table for key.
func (s *Store) SaveSeries(_ context.Context, key models.SeriesKey, bars []models.DailyBar) error {
	if err := writeJSON(s.pricesDir, key.String(), bars); err != nil {
		return fmt.Errorf("failed to save series %s: %w", key, err)
	}
	s.logger.Debug().Str("pair", key.String()).Int("bars", len(bars)).Msg("Series saved")
	return nil
}

// ListPairs returns every stored series key, sorted by pair name.
func (s *Store) ListPairs(_ context.Context) ([]models.SeriesKey, error) {
	names, err := listKeys(s.pricesDir)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	keys := make([]models.SeriesKey, 0, len(names))
	for _, name := range names {
		idx := strings.LastIndex(name, "-")
		if idx <= 0 || idx == len(name)-1 {
			continue
		}
		keys = append(keys, models.NewSeriesKey(name[:idx], name[idx+1:]))
	}
	return keys, nil
}

// DeleteSeries removes the stored table for key, if present.
func (s *Store) DeleteSeries(_ context.Context, key models.SeriesKey) error {
	os.Remove(filePath(s.pricesDir, key.String()))
	return nil
}

// SaveIndex persists the composite index table.
func (s *Store) SaveIndex(_ context.Context, rows []models.CompositeValue) error {
	if err := writeJSON(s.indexDir, indexKey, rows); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	s.logger.Debug().Int("rows", len(rows)).Msg("Composite index saved")
	return nil
}

// LoadIndex returns the stored composite index table.
func (s *Store) LoadIndex(_ context.Context) ([]models.CompositeValue, error) {
	var rows []models.CompositeValue
	if err := readJSON(s.indexDir, indexKey, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveComposition persists the daily composition table.
func (s *Store) SaveComposition(_ context.Context, rows []models.CompositionRow) error {
	if err := writeJSON(s.indexDir, compositionKey, rows); err != nil {
		return fmt.Errorf("failed to save composition: %w", err)
	}
	s.logger.Debug().Int("rows", len(rows)).Msg("Composition saved")
	return nil
}

// LoadComposition returns the stored daily composition table.
func (s *Store) LoadComposition(_ context.Context) ([]models.CompositionRow, error) {
	var rows []models.CompositionRow
	if err := readJSON(s.indexDir, compositionKey, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveUniverse persists the accepted coin universe.
func (s *Store) SaveUniverse(_ context.Context, u *models.Universe) error {
	if err := writeJSON(s.basePath, universeKey, u); err != nil {
		return fmt.Errorf("failed to save universe: %w", err)
	}
	return nil
}

// LoadUniverse returns the stored accepted coin universe.
func (s *Store) LoadUniverse(_ context.Context) (*models.Universe, error) {
	var u models.Universe
	if err := readJSON(s.basePath, universeKey, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// WriteRaw writes arbitrary binary data to a subdirectory atomically.
func (s *Store) WriteRaw(subdir, name string, data []byte) error {
	dir := filepath.Join(s.basePath, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return atomicWrite(dir, filepath.Join(dir, sanitizeKey(name)), data)
}

// PurgePrices removes all stored price tables and returns the count.
func (s *Store) PurgePrices() int {
	return purgeDir(s.pricesDir)
}

// PurgeIndex removes the stored index and composition tables.
func (s *Store) PurgeIndex() int {
	return purgeDir(s.indexDir)
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// --- helpers ---

// mergeBars combines two bar slices; updates win on same-day collision.
func mergeBars(existing, updates []models.DailyBar) []models.DailyBar {
	byDay := make(map[int64]models.DailyBar, len(existing)+len(updates))
	for _, b := range existing {
		b.Date = common.Day(b.Date)
		byDay[b.Date.Unix()] = b
	}
	for _, b := range updates {
		b.Date = common.Day(b.Date)
		byDay[b.Date.Unix()] = b
	}

	merged := make([]models.DailyBar, 0, len(byDay))
	for _, b := range byDay {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func filePath(dir, key string) string {
	return filepath.Join(dir, sanitizeKey(key)+".json")
}

func readJSON(dir, key string, dest interface{}) error {
	path := filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s' not found", key)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

func writeJSON(dir, key string, data interface{}) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')
	return atomicWrite(dir, filePath(dir, key), jsonData)
}

// atomicWrite writes via a temp file and rename so a reader never
// observes a partially written table.
func atomicWrite(dir, target string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func listKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".tmp-") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	return keys, nil
}

func purgeDir(dir string) int {
	keys, err := listKeys(dir)
	if err != nil {
		return 0
	}
	for _, key := range keys {
		os.Remove(filePath(dir, key))
	}
	return len(keys)
}

// Ensure Store implements SeriesStore
var _ interfaces.SeriesStore = (*Store)(nil)

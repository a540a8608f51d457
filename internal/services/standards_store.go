package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"soilhub/internal/dataprocessing"
	"soilhub/internal/exceedance"
	"soilhub/internal/infrastructure"
)

// StandardsStore serves the standards table, reloading it when the file on
// disk changes. The returned table is shared and must not be modified.
type StandardsStore struct {
	path     string
	taxonomy exceedance.Taxonomy
	metrics  *infrastructure.AnalysisMetrics
	events   EventPublisher
	logger   *slog.Logger

	mu      sync.Mutex
	table   *exceedance.StandardsTable
	modTime time.Time
	size    int64
}

// NewStandardsStore creates a store for the standards file at path. Nothing
// is read until the first Get.
func NewStandardsStore(path string, tax exceedance.Taxonomy, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *StandardsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StandardsStore{
		path:     path,
		taxonomy: tax,
		metrics:  metrics,
		events:   nopPublisher{},
		logger:   infrastructure.WithComponent(logger, "standards_store"),
	}
}

// SetEventPublisher routes standards:loaded events to p
func (s *StandardsStore) SetEventPublisher(p EventPublisher) {
	s.events = publisherOrNop(p)
}

// Path returns the standards file location
func (s *StandardsStore) Path() string {
	return s.path
}

// Get returns the current standards table. A missing or unreadable file is
// ErrStandardsNotLoaded; a file without region, label and item columns is a
// *exceedance.ConfigError.
func (s *StandardsStore) Get(ctx context.Context) (*exceedance.StandardsTable, error) {
	if s.path == "" {
		return nil, fmt.Errorf("%w: no standards file configured", ErrStandardsNotLoaded)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrStandardsNotLoaded, s.path)
		}
		return nil, fmt.Errorf("%w: %w", ErrStandardsNotLoaded, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.table, nil
	}

	src, err := dataprocessing.ReadTable(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStandardsNotLoaded, err)
	}

	table, err := exceedance.LoadStandards(src.Table, s.taxonomy)
	if err != nil {
		s.logger.ErrorContext(ctx, "Standards file rejected",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return nil, err
	}

	reloaded := s.table != nil
	s.table, s.modTime, s.size = table, info.ModTime(), info.Size()

	if s.metrics != nil {
		s.metrics.StandardsReloads.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "Standards table loaded",
		slog.String("path", s.path),
		slog.Bool("reload", reloaded),
		slog.Int("items", len(table.Items())),
		slog.Int("thresholds", table.Len()),
		slog.Int("skipped_rows", table.SkippedRows))
	s.events.Publish(ctx, EventStandardsLoaded, map[string]any{
		"path":       s.path,
		"reload":     reloaded,
		"items":      len(table.Items()),
		"thresholds": table.Len(),
	})
	return table, nil
}

// LoadTaxonomy returns the default taxonomy, or the one read from path when
// path is set, extended with the configured countermeasure labels.
func LoadTaxonomy(path string, countermeasureLabels []string) (exceedance.Taxonomy, error) {
	tax := exceedance.DefaultTaxonomy()
	if path != "" {
		var err error
		if tax, err = exceedance.LoadTaxonomy(path); err != nil {
			return exceedance.Taxonomy{}, err
		}
	}
	for _, label := range countermeasureLabels {
		if label != "" {
			tax = tax.WithLevelLabel(label, exceedance.CountermeasureStandard)
		}
	}
	return tax, nil
}

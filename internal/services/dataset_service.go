package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"soilhub/internal/config"
	"soilhub/internal/dataprocessing"
	apierrors "soilhub/internal/errors"
	"soilhub/internal/files"
	"soilhub/internal/infrastructure"
)

// DatasetPreview is the raw view of a dataset: the first rows as read, plus
// a per-column profile of the whole file
type DatasetPreview struct {
	Dataset   files.Dataset                  `json:"dataset"`
	Header    []string                       `json:"header"`
	Rows      [][]string                     `json:"rows"`
	TotalRows int                            `json:"total_rows"`
	Encoding  string                         `json:"encoding,omitempty"`
	Sheet     string                         `json:"sheet,omitempty"`
	Columns   []dataprocessing.ColumnProfile `json:"columns"`
	Cleaning  dataprocessing.CleanStats      `json:"cleaning"`
}

// DatasetService manages uploaded survey datasets
type DatasetService struct {
	registry       *files.Registry
	maxUploadBytes int64
	previewRows    int
	metrics        *infrastructure.AnalysisMetrics
	events         EventPublisher
	logger         *slog.Logger
}

// NewDatasetService creates a dataset service over registry. metrics may be nil.
func NewDatasetService(registry *files.Registry, cfg config.AnalysisConfig, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}

	previewRows := cfg.PreviewRows
	if previewRows <= 0 {
		previewRows = config.DefaultPreviewRows
	}

	return &DatasetService{
		registry:       registry,
		maxUploadBytes: cfg.MaxUploadMB << 20,
		previewRows:    previewRows,
		metrics:        metrics,
		events:         nopPublisher{},
		logger:         infrastructure.WithComponent(logger, "dataset_service"),
	}
}

// SetEventPublisher routes upload and delete events to p
func (s *DatasetService) SetEventPublisher(p EventPublisher) {
	s.events = publisherOrNop(p)
}

// MaxUploadBytes returns the upload size limit
func (s *DatasetService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Upload stores src under name. The content must parse as a table with a
// header row; otherwise the stored file is removed again.
func (s *DatasetService) Upload(ctx context.Context, name string, src io.Reader) (files.Dataset, error) {
	ds, err := s.registry.Create(name, src, s.maxUploadBytes)
	if err != nil {
		switch {
		case errors.Is(err, dataprocessing.ErrUnsupportedFormat):
			return files.Dataset{}, fmt.Errorf("%w: %w", ErrInvalidFileType, err)
		case errors.Is(err, files.ErrEmptyFile):
			return files.Dataset{}, fmt.Errorf("%w: %w", ErrEmptyDataset, err)
		case errors.Is(err, files.ErrTooLarge):
			return files.Dataset{}, fmt.Errorf("%w: limit %d bytes", ErrDatasetTooLarge, s.maxUploadBytes)
		}
		s.logger.ErrorContext(ctx, "Failed to store upload",
			slog.String("name", name),
			slog.String("error", err.Error()))
		return files.Dataset{}, err
	}

	if _, err := dataprocessing.ReadTable(s.registry.Path(ds)); err != nil {
		if derr := s.registry.Delete(ds.ID); derr != nil {
			s.logger.WarnContext(ctx, "Failed to remove unreadable upload",
				slog.String("dataset_id", ds.ID),
				slog.String("error", derr.Error()))
		}
		if errors.Is(err, dataprocessing.ErrNoHeader) {
			return files.Dataset{}, fmt.Errorf("%w: %w", ErrEmptyDataset, err)
		}
		return files.Dataset{}, apierrors.NewParsingError("read upload", fmt.Errorf("%w: %w", ErrUnreadable, err)).
			WithContext("name", name)
	}

	if s.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("format", ds.Format))
		s.metrics.DatasetUploadsTotal.Add(ctx, 1, attrs)
		s.metrics.DatasetUploadBytes.Add(ctx, ds.Size, attrs)
	}

	s.logger.InfoContext(ctx, "Dataset uploaded",
		slog.String("dataset_id", ds.ID),
		slog.String("name", ds.Name),
		slog.Int64("size_bytes", ds.Size))
	s.events.Publish(ctx, EventDatasetUploaded, ds)
	return ds, nil
}

// List returns all datasets, newest first
func (s *DatasetService) List(ctx context.Context) []files.Dataset {
	return s.registry.List()
}

// Get returns one dataset
func (s *DatasetService) Get(ctx context.Context, id string) (files.Dataset, error) {
	ds, err := s.registry.Get(id)
	if err != nil {
		return files.Dataset{}, mapRegistryError(err)
	}
	return ds, nil
}

// Delete removes the dataset and its file
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	if err := s.registry.Delete(id); err != nil {
		return mapRegistryError(err)
	}
	if s.metrics != nil {
		s.metrics.DatasetDeletesTotal.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "Dataset deleted", slog.String("dataset_id", id))
	s.events.Publish(ctx, EventDatasetDeleted, map[string]string{"id": id})
	return nil
}

// Preview returns up to limit rows of the dataset. limit <= 0 uses the
// configured preview size.
func (s *DatasetService) Preview(ctx context.Context, id string, limit int) (*DatasetPreview, error) {
	if limit <= 0 {
		limit = s.previewRows
	}

	ds, table, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	view := dataprocessing.Preview(table.Table, limit)
	return &DatasetPreview{
		Dataset:   ds,
		Header:    view.Header,
		Rows:      view.Rows,
		TotalRows: len(table.Rows),
		Encoding:  table.Encoding,
		Sheet:     table.Sheet,
		Columns:   dataprocessing.Profile(table.Table, 0),
		Cleaning:  table.Stats,
	}, nil
}

// Load reads the dataset's table from disk
func (s *DatasetService) Load(ctx context.Context, id string) (files.Dataset, *dataprocessing.SourceTable, error) {
	ds, err := s.Get(ctx, id)
	if err != nil {
		return files.Dataset{}, nil, err
	}

	table, err := dataprocessing.ReadTable(s.registry.Path(ds))
	if err != nil {
		infrastructure.WithError(infrastructure.WithDataset(s.logger, id), err).
			ErrorContext(ctx, "Failed to read dataset", slog.String("file", ds.File))
		return files.Dataset{}, nil, apierrors.NewParsingError("read dataset", fmt.Errorf("%w: %w", ErrUnreadable, err)).
			WithContext("dataset_id", id)
	}

	if table.Stats != (dataprocessing.CleanStats{}) {
		s.logger.DebugContext(ctx, "Dataset cleaned on read",
			slog.String("dataset_id", id),
			slog.Int("padded_rows", table.Stats.PaddedRows),
			slog.Int("blank_rows", table.Stats.BlankRows),
			slog.Int("renamed_columns", table.Stats.RenamedCols))
	}
	return ds, table, nil
}

func mapRegistryError(err error) error {
	if errors.Is(err, files.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrDatasetNotFound, err)
	}
	return err
}

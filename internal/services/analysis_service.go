package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"soilhub/internal/config"
	apierrors "soilhub/internal/errors"
	"soilhub/internal/exceedance"
	"soilhub/internal/exporter"
	"soilhub/internal/files"
	"soilhub/internal/infrastructure"
)

// AnalysisParams selects what an analysis covers. Zero values fall back to
// the configured defaults.
type AnalysisParams struct {
	Items     []string
	Levels    []string
	CountMode string
}

// AnalysisReport is a PhaseReport together with the dataset it describes
type AnalysisReport struct {
	Dataset     files.Dataset `json:"dataset"`
	CountMode   string        `json:"count_mode"`
	SiteColumn  string        `json:"site_column,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	*exceedance.PhaseReport
}

// DiagnosticsReport describes how a dataset was classified
type DiagnosticsReport struct {
	Dataset      files.Dataset          `json:"dataset"`
	Columns      []string               `json:"columns"`
	PhaseColumn  string                 `json:"phase_column,omitempty"`
	RegionColumn string                 `json:"region_column"`
	SiteColumn   string                 `json:"site_column,omitempty"`
	Phases       map[string]int         `json:"phases"`
	Regions      map[string]int         `json:"regions"`
	Items        []string               `json:"items"`
	Diagnostics  exceedance.Diagnostics `json:"diagnostics"`
}

// ItemCatalog lists the items a client can choose from
type ItemCatalog struct {
	Groups          []exceedance.ItemGroup `json:"groups"`
	StandardsItems  []string               `json:"standards_items"`
	DefaultItems    []string               `json:"default_items"`
	StandardsLoaded bool                   `json:"standards_loaded"`
}

// ExportResult is a rendered export ready for download
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AnalysisService runs exceedance analyses over stored datasets
type AnalysisService struct {
	datasets  *DatasetService
	standards *StandardsStore
	taxonomy  exceedance.Taxonomy
	levels    []exceedance.CriteriaLevel
	countMode exceedance.CountMode
	tracer    trace.Tracer
	metrics   *infrastructure.AnalysisMetrics
	events    EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewAnalysisService creates an analysis service. tracer and metrics may be nil.
func NewAnalysisService(datasets *DatasetService, standards *StandardsStore, tax exceedance.Taxonomy, cfg config.AnalysisConfig, tracer trace.Tracer, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) (*AnalysisService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}

	levels, err := parseLevels(cfg.Levels)
	if err != nil {
		return nil, fmt.Errorf("analysis config: %w", err)
	}
	mode, ok := exceedance.ParseCountMode(strings.ToLower(cfg.CountMode))
	if !ok {
		return nil, fmt.Errorf("analysis config: %w: count mode %q", ErrInvalidInput, cfg.CountMode)
	}

	return &AnalysisService{
		datasets:  datasets,
		standards: standards,
		taxonomy:  tax,
		levels:    levels,
		countMode: mode,
		tracer:    tracer,
		metrics:   metrics,
		events:    nopPublisher{},
		logger:    infrastructure.WithComponent(logger, "analysis_service"),
		now:       time.Now,
	}, nil
}

// SetEventPublisher routes analysis:completed events to p
func (s *AnalysisService) SetEventPublisher(p EventPublisher) {
	s.events = publisherOrNop(p)
}

// Analyze classifies the dataset and aggregates it into the overview,
// detailed and combined tables. The three tables are computed concurrently.
func (s *AnalysisService) Analyze(ctx context.Context, id string, p AnalysisParams) (*AnalysisReport, error) {
	return s.analyze(ctx, id, p, func(ctx context.Context) (files.Dataset, exceedance.Table, error) {
		ds, table, err := s.datasets.Load(ctx, id)
		if err != nil {
			return files.Dataset{}, exceedance.Table{}, err
		}
		return ds, table.Table, nil
	})
}

// AnalyzeTable runs the analysis over a table that is not in the registry.
// ds only labels the report.
func (s *AnalysisService) AnalyzeTable(ctx context.Context, ds files.Dataset, t exceedance.Table, p AnalysisParams) (*AnalysisReport, error) {
	return s.analyze(ctx, ds.ID, p, func(context.Context) (files.Dataset, exceedance.Table, error) {
		return ds, t, nil
	})
}

type tableSource func(ctx context.Context) (files.Dataset, exceedance.Table, error)

func (s *AnalysisService) analyze(ctx context.Context, id string, p AnalysisParams, load tableSource) (report *AnalysisReport, err error) {
	ctx, span := s.tracer.Start(ctx, "analysis.run", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer span.End()

	start := time.Now()
	var diag exceedance.Diagnostics
	defer func() {
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
		s.metrics.RecordAnalysis(ctx, id, diag.TotalRecords, diag.UnknownRegion, diag.UnparseableTotal(), time.Since(start), err)
	}()

	opts, err := s.options(p)
	if err != nil {
		return nil, err
	}

	ds, table, err := load(ctx)
	if err != nil {
		return nil, err
	}

	std, err := s.standards.Get(ctx)
	if err != nil {
		return nil, err
	}

	classified, err := s.classify(ctx, table)
	if err != nil {
		return nil, err
	}

	items := cleanItems(p.Items)
	if len(items) == 0 {
		items = s.defaultItems(std)
	}
	normalized := exceedance.Normalize(classified, items)
	diag = normalized.Diagnostics

	tables, err := s.aggregate(ctx, normalized, items, std, opts)
	if err != nil {
		return nil, err
	}

	report = &AnalysisReport{
		Dataset:     ds,
		CountMode:   opts.CountMode.String(),
		SiteColumn:  normalized.SiteColumn,
		GeneratedAt: s.now().UTC(),
		PhaseReport: exceedance.NewPhaseReport(items, opts.Levels, diag, tables[0], tables[1], tables[2]),
	}

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"analysis.items":          len(items),
		"analysis.records":        diag.TotalRecords,
		"analysis.unknown_region": diag.UnknownRegion,
		"analysis.count_mode":     opts.CountMode.String(),
	})
	s.logger.InfoContext(ctx, "Analysis completed",
		slog.String("dataset_id", id),
		slog.Int("items", len(items)),
		slog.Int("records", diag.TotalRecords),
		slog.Int("unknown_phase", diag.UnknownPhase),
		slog.Int("unknown_region", diag.UnknownRegion),
		slog.Int("unparseable_cells", diag.UnparseableTotal()),
		slog.Duration("duration", time.Since(start)))
	if len(diag.UnmatchedRegionLabels) > 0 {
		s.logger.WarnContext(ctx, "Region labels matched no rule",
			slog.String("dataset_id", id),
			slog.Any("labels", diag.UnmatchedRegionLabels))
	}

	levelNames := make([]string, len(opts.Levels))
	for i, l := range opts.Levels {
		levelNames[i] = l.String()
	}
	s.events.Publish(ctx, EventAnalysisCompleted, AnalysisSummary{
		DatasetID:     id,
		Items:         items,
		Levels:        levelNames,
		CountMode:     report.CountMode,
		Records:       diag.TotalRecords,
		UnknownRegion: diag.UnknownRegion,
		Rows:          len(report.Combined),
	})
	return report, nil
}

// Diagnostics classifies the dataset without aggregating it. Standards are
// optional here; without them the taxonomy items are checked.
func (s *AnalysisService) Diagnostics(ctx context.Context, id string) (*DiagnosticsReport, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.diagnostics", trace.WithAttributes(attribute.String("dataset.id", id)))
	defer span.End()

	ds, table, err := s.datasets.Load(ctx, id)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	classified, err := s.classify(ctx, table.Table)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	std, err := s.standards.Get(ctx)
	if err != nil {
		s.logger.DebugContext(ctx, "Diagnostics without standards", slog.String("error", err.Error()))
	}
	items := s.defaultItems(std)
	normalized := exceedance.Normalize(classified, items)

	out := &DiagnosticsReport{
		Dataset:      ds,
		Columns:      normalized.Columns,
		PhaseColumn:  normalized.PhaseColumn,
		RegionColumn: normalized.RegionColumn,
		SiteColumn:   normalized.SiteColumn,
		Phases:       make(map[string]int),
		Regions:      make(map[string]int),
		Items:        items,
		Diagnostics:  normalized.Diagnostics,
	}
	for _, rec := range normalized.Records {
		out.Phases[rec.Phase.String()]++
		out.Regions[rec.Region.String()]++
	}
	return out, nil
}

// Items returns the selectable items. A missing standards file is not an
// error; the catalog then only carries the taxonomy groups.
func (s *AnalysisService) Items(ctx context.Context) (*ItemCatalog, error) {
	catalog := &ItemCatalog{Groups: s.taxonomy.Groups}

	std, err := s.standards.Get(ctx)
	switch {
	case err == nil:
		catalog.StandardsLoaded = true
		catalog.StandardsItems = std.Items()
	case errors.Is(err, ErrStandardsNotLoaded):
		s.logger.DebugContext(ctx, "Item catalog without standards", slog.String("error", err.Error()))
	default:
		return nil, err
	}

	catalog.DefaultItems = s.defaultItems(std)
	return catalog, nil
}

// Export runs the analysis and renders it as csv or xlsx
func (s *AnalysisService) Export(ctx context.Context, id string, p AnalysisParams, format string) (*ExportResult, error) {
	writer, err := exporter.ForFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}

	report, err := s.Analyze(ctx, id, p)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "analysis.export", trace.WithAttributes(attribute.String("export.format", writer.Format())))
	defer span.End()

	var buf bytes.Buffer
	if err := writer.Write(&buf, report.PhaseReport); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, apierrors.NewAnalysisError("render export", err).
			WithContext("dataset_id", id).
			WithContext("format", writer.Format())
	}

	if s.metrics != nil {
		s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", writer.Format())))
	}
	s.logger.InfoContext(ctx, "Analysis exported",
		slog.String("dataset_id", id),
		slog.String("format", writer.Format()),
		slog.Int("size_bytes", buf.Len()))

	return &ExportResult{
		Filename:    exporter.Filename(id, writer),
		ContentType: writer.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func (s *AnalysisService) classify(ctx context.Context, t exceedance.Table) (*exceedance.Dataset, error) {
	_, span := s.tracer.Start(ctx, "analysis.classify")
	defer span.End()

	ds, err := exceedance.Classify(t, s.taxonomy)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("records", len(ds.Records)))
	return ds, nil
}

// aggregate computes one table per variant, in exceedance.Variants order
func (s *AnalysisService) aggregate(ctx context.Context, ds *exceedance.Dataset, items []string, std *exceedance.StandardsTable, opts exceedance.Options) ([]exceedance.ResultTable, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.aggregate")
	defer span.End()

	tables := make([]exceedance.ResultTable, len(exceedance.Variants))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range exceedance.Variants {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := opts
			o.Phases = v.Phases
			t, err := exceedance.Aggregate(ds, items, std, o)
			if err != nil {
				return fmt.Errorf("%s: %w", v.Name, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *AnalysisService) options(p AnalysisParams) (exceedance.Options, error) {
	opts := exceedance.Options{Levels: s.levels, CountMode: s.countMode}

	if len(p.Levels) > 0 {
		levels, err := parseLevels(p.Levels)
		if err != nil {
			return opts, err
		}
		opts.Levels = levels
	}
	if p.CountMode != "" {
		mode, ok := exceedance.ParseCountMode(strings.ToLower(p.CountMode))
		if !ok {
			return opts, fmt.Errorf("%w: count mode %q", ErrInvalidInput, p.CountMode)
		}
		opts.CountMode = mode
	}
	return opts, nil
}

// defaultItems prefers the items holding a 1지역 concern threshold, in
// standards column order
func (s *AnalysisService) defaultItems(std *exceedance.StandardsTable) []string {
	if std != nil {
		if items := std.ItemsFor(exceedance.Region1, exceedance.ConcernStandard); len(items) > 0 {
			return items
		}
		if items := std.Items(); len(items) > 0 {
			return items
		}
	}
	return s.taxonomy.Items()
}

// parseLevels converts level names, dropping repeats. Empty input means all levels.
func parseLevels(names []string) ([]exceedance.CriteriaLevel, error) {
	if len(names) == 0 {
		return append([]exceedance.CriteriaLevel(nil), exceedance.AllLevels...), nil
	}

	levels := make([]exceedance.CriteriaLevel, 0, len(names))
	seen := make(map[exceedance.CriteriaLevel]struct{}, len(names))
	for _, name := range names {
		level, ok := exceedance.ParseCriteriaLevel(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return nil, fmt.Errorf("%w: criteria level %q", ErrInvalidInput, name)
		}
		if _, dup := seen[level]; dup {
			continue
		}
		seen[level] = struct{}{}
		levels = append(levels, level)
	}
	return levels, nil
}

// cleanItems trims item names and drops blanks and repeats
func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

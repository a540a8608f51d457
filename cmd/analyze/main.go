// Command analyze runs an exceedance analysis over local survey files and
// writes the overview, detailed and combined tables as csv or xlsx.
//
//	analyze -data 현장A.csv -standards standards.csv -items Cd,Pb -format xlsx
//	analyze -dir surveys/ -out reports/
//
// With -dir every .csv and .xlsx file in the directory is analysed and -out
// names the output directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"soilhub/internal/config"
	"soilhub/internal/dataprocessing"
	"soilhub/internal/exceedance"
	"soilhub/internal/exporter"
	"soilhub/internal/files"
	"soilhub/internal/infrastructure"
	"soilhub/internal/services"
	"soilhub/internal/validation"
	"soilhub/pkg/contracts"
)

// exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// listFlag collects repeated flag values
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	data      string
	dir       string
	standards string
	taxonomy  string
	out       string
	format    string
	countMode string
	levels    string
	items     string
	item      listFlag
	print     bool
	logLevel  string
	version   bool
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.data, "data", "", "survey file to analyse (.csv or .xlsx)")
	fs.StringVar(&opts.dir, "dir", "", "directory of survey files to analyse")
	fs.StringVar(&opts.standards, "standards", "", "standards table (defaults to the configured standards file)")
	fs.StringVar(&opts.taxonomy, "taxonomy", "", "taxonomy override (YAML)")
	fs.StringVar(&opts.out, "out", "", "output file, or directory with -dir (defaults to the reports directory)")
	fs.StringVar(&opts.format, "format", exporter.FormatCSV, "output format: csv or xlsx")
	fs.StringVar(&opts.countMode, "count-mode", "", "site counting: auto or samples")
	fs.StringVar(&opts.levels, "levels", "", "comma separated criteria levels: concern40,concern,countermeasure")
	fs.StringVar(&opts.items, "items", "", "comma separated items")
	fs.Var(&opts.item, "item", "item to analyse, kept whole; may be repeated")
	fs.BoolVar(&opts.print, "print", false, "print the report as JSON to stdout instead of writing a file")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}
	if (opts.data == "") == (opts.dir == "") {
		fmt.Fprintln(stderr, "analyze: exactly one of -data or -dir is required")
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "analyze: config: %v, using defaults\n", err)
		cfg = config.Default()
	}
	cfg.Logging.Level = opts.logLevel
	cfg.Logging.Output = "stderr"
	cfg.Logging.Format = "text"

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: logger: %v\n", err)
		return exitFailed
	}

	r, err := newRunner(cfg, opts, stdout, logger)
	if err != nil {
		fmt.Fprintf(stderr, "analyze: %v\n", err)
		return exitFailed
	}

	inputs := []string{opts.data}
	if opts.dir != "" {
		if inputs, err = r.validator.FindDataFiles(opts.dir); err != nil {
			fmt.Fprintf(stderr, "analyze: %v\n", err)
			return exitFailed
		}
		if len(inputs) == 0 {
			fmt.Fprintf(stderr, "analyze: no .csv or .xlsx files in %s\n", opts.dir)
			return exitFailed
		}
	}

	code := exitOK
	for _, input := range inputs {
		path, err := r.analyze(ctx, input)
		if err != nil {
			logger.ErrorContext(ctx, "Analysis failed", slog.String("data", input), slog.String("error", err.Error()))
			fmt.Fprintf(stderr, "analyze: %s: %v\n", input, err)
			code = exitFailed
			continue
		}
		if path != "" {
			fmt.Fprintf(stderr, "wrote %s\n", path)
		}
	}
	return code
}

// runner holds what every input of one invocation shares
type runner struct {
	opts      options
	params    services.AnalysisParams
	writer    exporter.Writer
	outDir    string
	service   *services.AnalysisService
	validator *validation.FileValidator
	stdout    io.Writer
	logger    *slog.Logger
}

func newRunner(cfg *config.Config, opts options, stdout io.Writer, logger *slog.Logger) (*runner, error) {
	writer, err := exporter.ForFormat(opts.format)
	if err != nil {
		return nil, err
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}
	validator := validation.NewFileValidator(logger)

	standardsFile := opts.standards
	if standardsFile == "" {
		standardsFile = paths.StandardsFile
	}
	if err := validator.ValidateDataFile(standardsFile); err != nil {
		return nil, fmt.Errorf("standards: %w", err)
	}

	taxonomyFile := opts.taxonomy
	if taxonomyFile == "" && paths.HasTaxonomyFile() {
		taxonomyFile = paths.TaxonomyFile
	}
	tax, err := services.LoadTaxonomy(taxonomyFile, cfg.Analysis.CountermeasureLabels)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}

	standards := services.NewStandardsStore(standardsFile, tax, nil, logger)
	svc, err := services.NewAnalysisService(nil, standards, tax, cfg.Analysis, nil, nil, logger)
	if err != nil {
		return nil, err
	}

	outDir := paths.ReportsDir
	switch {
	case opts.dir != "" && opts.out != "":
		outDir = opts.out
	case opts.out != "":
		outDir = filepath.Dir(opts.out)
	}
	if !opts.print {
		if err := validator.ValidateOutputDirectory(outDir); err != nil {
			return nil, err
		}
	}

	return &runner{
		opts: opts,
		params: services.AnalysisParams{
			Items:     itemList(opts.items, opts.item),
			Levels:    splitList(opts.levels),
			CountMode: strings.ToLower(opts.countMode),
		},
		writer:    writer,
		outDir:    outDir,
		service:   svc,
		validator: validator,
		stdout:    stdout,
		logger:    logger,
	}, nil
}

// analyze runs the analysis of one survey file and writes its export. It
// returns the path written, which is empty when only printing.
func (r *runner) analyze(ctx context.Context, input string) (string, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	if err := r.validator.ValidateDataFile(input); err != nil {
		return "", err
	}

	src, err := dataprocessing.ReadTable(input)
	if err != nil {
		return "", err
	}
	r.logger.InfoContext(ctx, "Survey file read",
		slog.String("data", input),
		slog.String("encoding", src.Encoding),
		slog.Int("rows", len(src.Rows)))

	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	ds := files.Dataset{ID: name, Name: filepath.Base(input), Format: src.Format}
	report, err := r.service.AnalyzeTable(ctx, ds, src.Table, r.params)
	if err != nil {
		return "", err
	}
	warnDiagnostics(ctx, r.logger, report.Diagnostics)

	if r.opts.print {
		enc := json.NewEncoder(r.stdout)
		enc.SetIndent("", "  ")
		return "", enc.Encode(report)
	}

	out := filepath.Join(r.outDir, exporter.Filename(name, r.writer))
	if r.opts.dir == "" && r.opts.out != "" {
		out = r.opts.out
	}
	if err := exporter.WriteFile(out, r.writer, report.PhaseReport); err != nil {
		return "", err
	}
	return out, nil
}

func warnDiagnostics(ctx context.Context, logger *slog.Logger, d exceedance.Diagnostics) {
	if !d.HasIssues() {
		return
	}
	logger.WarnContext(ctx, "Records were excluded or cells could not be parsed",
		slog.Int("records", d.TotalRecords),
		slog.Int("unknown_phase", d.UnknownPhase),
		slog.Int("unknown_region", d.UnknownRegion),
		slog.Int("unparseable_cells", d.UnparseableTotal()),
		slog.Any("unmatched_region_labels", d.UnmatchedRegionLabels))
}

// itemList merges the comma separated -items list with the repeated -item values
func itemList(items string, repeated []string) []string {
	out := splitList(items)
	for _, it := range repeated {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

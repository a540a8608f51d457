package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	BaseDir    string
	DataDir    string
	UploadsDir string
	ReportsDir string
	LogsDir    string

	// Well-known files
	DatasetsFile  string
	StandardsFile string
	TaxonomyFile  string
}

// NewPaths resolves every configured path against base. Absolute paths are
// kept as they are. Directory layout with the defaults:
//
//	base/
//	  ├── datasets.json
//	  ├── standards.csv
//	  ├── data/            (uploaded datasets)
//	  │   └── reports/     (exported analyses)
//	  └── logs/
func NewPaths(base string, pc PathsConfig) *Paths {
	resolve := func(p string) string {
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	uploads := pc.UploadsDir
	if uploads == "" {
		uploads = pc.DataDir
	}

	return &Paths{
		BaseDir:       base,
		DataDir:       resolve(pc.DataDir),
		UploadsDir:    resolve(uploads),
		ReportsDir:    resolve(pc.ReportsDir),
		LogsDir:       resolve(pc.LogsDir),
		DatasetsFile:  resolve(pc.DatasetsFile),
		StandardsFile: resolve(pc.StandardsFile),
		TaxonomyFile:  resolve(pc.TaxonomyFile),
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return filepath.Dir(exe), nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.UploadsDir,
		p.ReportsDir,
		p.LogsDir,
		filepath.Dir(p.DatasetsFile),
	}

	for _, dir := range directories {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetUploadPath returns the path of a stored dataset file
func (p *Paths) GetUploadPath(filename string) string {
	return filepath.Join(p.UploadsDir, filename)
}

// GetReportPath returns the path for an exported report
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// HasTaxonomyFile reports whether a taxonomy override is configured and present
func (p *Paths) HasTaxonomyFile() bool {
	return p.TaxonomyFile != "" && FileExists(p.TaxonomyFile)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("uploads", p.UploadsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("datasets", p.DatasetsFile),
			slog.String("standards", p.StandardsFile),
			slog.Bool("standards_exists", FileExists(p.StandardsFile)),
			slog.String("taxonomy", p.TaxonomyFile),
		))
}

// ValidateRequiredFiles checks if critical files exist and returns detailed error information
func (p *Paths) ValidateRequiredFiles() error {
	requiredFiles := map[string]string{
		"Standards": p.StandardsFile,
	}
	if p.TaxonomyFile != "" {
		requiredFiles["Taxonomy"] = p.TaxonomyFile
	}

	var missingFiles []string
	for name, path := range requiredFiles {
		if !FileExists(path) {
			missingFiles = append(missingFiles, fmt.Sprintf("%s (%s)", name, path))
		}
	}

	if len(missingFiles) > 0 {
		return fmt.Errorf("required files missing: %s", strings.Join(missingFiles, ", "))
	}

	return nil
}

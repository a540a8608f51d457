package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"soilhub/internal/dataprocessing"
	"soilhub/internal/files"
)

// ErrTemporaryFile is returned for spreadsheet lock files such as ~$현장A.xlsx
var ErrTemporaryFile = errors.New("temporary spreadsheet file")

// FileValidator checks the survey, standards and output locations given to
// the command line tools before any work starts
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks that path exists, is a regular file and can be opened
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateDataFile checks a survey or standards file: it must be readable,
// carry a .csv or .xlsx extension and not be a spreadsheet lock file
func (v *FileValidator) ValidateDataFile(path string) error {
	if files.IsLockFile(path) {
		v.logger.Warn("Skipping temporary spreadsheet file",
			slog.String("file", path))
		return fmt.Errorf("%w: %s", ErrTemporaryFile, path)
	}

	if _, err := dataprocessing.FormatOf(path); err != nil {
		v.logger.Error("Unsupported data file",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return fmt.Errorf("file %s: %w", path, err)
	}

	return v.ValidateFile(path)
}

// ValidateOutputDirectory ensures dir exists or can be created, and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// FindDataFiles returns the survey files directly under dir, sorted by name.
// Subdirectories, lock files and other extensions are skipped.
func (v *FileValidator) FindDataFiles(dir string) ([]string, error) {
	scanned, err := files.NewDiscovery("").FindDataFiles(dir)
	if err != nil {
		v.logger.Error("Failed to read input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to read input directory %s: %w", dir, err)
	}

	found := make([]string, 0, len(scanned))
	for _, f := range scanned {
		found = append(found, f.Path)
	}
	sort.Strings(found)

	if len(found) == 0 {
		v.logger.Warn("No data files found in input directory",
			slog.String("directory", dir))
		return found, nil
	}
	v.logger.Info("Input directory validated",
		slog.String("directory", dir),
		slog.Int("files", len(found)))
	return found, nil
}

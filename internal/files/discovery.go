package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"soilhub/internal/dataprocessing"
)

// FileInfo describes a survey file found on disk
type FileInfo struct {
	Path    string
	Name    string
	Format  string
	Size    int64
	ModTime time.Time
}

// Discovery scans directories for survey files. Relative directories are
// resolved against the base path.
type Discovery struct {
	basePath string
}

// NewDiscovery returns a Discovery rooted at basePath
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindDataFiles lists the .csv and .xlsx files directly inside dir, oldest
// first. Hidden files and spreadsheet lock files (~$name.xlsx) are skipped.
func (d *Discovery) FindDataFiles(dir string) ([]FileInfo, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var found []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || IsLockFile(name) {
			continue
		}
		format, err := dataprocessing.FormatOf(name)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed while scanning
			continue
		}
		found = append(found, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Format:  format,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].ModTime.Equal(found[j].ModTime) {
			return found[i].ModTime.Before(found[j].ModTime)
		}
		return found[i].Name < found[j].Name
	})
	return found, nil
}

// IsLockFile reports whether name is an office lock file such as ~$현장A.xlsx
func IsLockFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "~$")
}

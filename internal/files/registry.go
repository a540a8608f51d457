package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"soilhub/internal/dataprocessing"
	apierrors "soilhub/internal/errors"
)

// IDLayout is the time layout dataset ids are generated from
const IDLayout = "20060102_150405"

var (
	// ErrNotFound is returned for ids the registry does not know
	ErrNotFound = errors.New("dataset not found")
	// ErrEmptyFile is returned when an upload has no content
	ErrEmptyFile = errors.New("empty file")
)

// Dataset is the registry entry of one uploaded file
type Dataset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	File       string    `json:"file"`
	Format     string    `json:"format,omitempty"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// entry is the on-disk shape; the id is the map key
type entry struct {
	Name       string    `json:"name"`
	File       string    `json:"file"`
	Format     string    `json:"format,omitempty"`
	Size       int64     `json:"size,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Registry keeps datasets.json in step with the uploads directory. All
// methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	manager  *Manager
	file     string
	datasets map[string]entry
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegistry loads the registry file. A missing file starts an empty registry.
func NewRegistry(manager *Manager, file string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		manager:  manager,
		file:     file,
		datasets: make(map[string]entry),
		logger:   logger.With(slog.String("component", "dataset_registry")),
		now:      time.Now,
	}

	data, err := manager.ReadFile(file)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.logger.Info("Dataset registry not found, starting empty", slog.String("file", file))
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("read dataset registry: %w", err)
	}

	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &r.datasets); err != nil {
			return nil, fmt.Errorf("parse dataset registry %s: %w", filepath.Base(file), err)
		}
	}

	r.logger.Info("Dataset registry loaded",
		slog.String("file", file),
		slog.Int("datasets", len(r.datasets)))
	return r, nil
}

// List returns every dataset, newest first
func (r *Registry) List() []Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Dataset, 0, len(r.datasets))
	for id, e := range r.datasets {
		out = append(out, toDataset(id, e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Get returns the dataset registered under id
func (r *Registry) Get(id string) (Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.datasets[id]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return toDataset(id, e), nil
}

// Path returns the absolute path of the dataset's file
func (r *Registry) Path(ds Dataset) string {
	return r.manager.UploadPath(ds.File)
}

// Create stores the content of src under a new id and registers it. name is
// the client's file name; only .csv and .xlsx are accepted.
func (r *Registry) Create(name string, src io.Reader, maxBytes int64) (Dataset, error) {
	name = SanitizeFilename(name)
	format, err := dataprocessing.FormatOf(name)
	if err != nil {
		return Dataset{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	id := r.newIDLocked(now)
	file := id + "_" + name

	size, err := r.manager.SaveStream(r.manager.UploadPath(file), src, maxBytes)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return Dataset{}, err
		}
		return Dataset{}, apierrors.NewStorageError("save upload", err).WithContext("file", file)
	}
	if size == 0 {
		_ = r.manager.DeleteFile(r.manager.UploadPath(file))
		return Dataset{}, ErrEmptyFile
	}

	e := entry{Name: name, File: file, Format: format, Size: size, UploadedAt: now.UTC()}
	r.datasets[id] = e
	if err := r.persistLocked(); err != nil {
		delete(r.datasets, id)
		_ = r.manager.DeleteFile(r.manager.UploadPath(file))
		return Dataset{}, err
	}

	r.logger.Info("Dataset registered",
		slog.String("dataset_id", id),
		slog.String("name", name),
		slog.Int64("size_bytes", size))
	return toDataset(id, e), nil
}

// Delete unregisters the dataset and removes its file
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.datasets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(r.datasets, id)
	if err := r.persistLocked(); err != nil {
		r.datasets[id] = e
		return err
	}

	if err := r.manager.DeleteFile(r.manager.UploadPath(e.File)); err != nil {
		// the entry is gone; the file is now an orphan
		r.logger.Warn("Failed to delete dataset file",
			slog.String("dataset_id", id),
			slog.String("file", e.File),
			slog.String("error", err.Error()))
	}

	r.logger.Info("Dataset deleted", slog.String("dataset_id", id))
	return nil
}

// Orphans lists data files in the uploads directory that no entry refers to
func (r *Registry) Orphans() ([]FileInfo, error) {
	found, err := NewDiscovery(r.manager.Paths().BaseDir).FindDataFiles(r.manager.Paths().UploadsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	r.mu.RLock()
	referenced := make(map[string]struct{}, len(r.datasets))
	for _, e := range r.datasets {
		referenced[e.File] = struct{}{}
	}
	r.mu.RUnlock()

	var orphans []FileInfo
	for _, f := range found {
		if _, ok := referenced[f.Name]; !ok {
			orphans = append(orphans, f)
		}
	}
	return orphans, nil
}

// Len returns the number of registered datasets
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.datasets)
}

// newIDLocked derives an id from now; a taken id gets a random suffix
func (r *Registry) newIDLocked(now time.Time) string {
	id := now.Format(IDLayout)
	for {
		if _, taken := r.datasets[id]; !taken {
			return id
		}
		id = now.Format(IDLayout) + "_" + uuid.New().String()[:8]
	}
}

func (r *Registry) persistLocked() error {
	data, err := json.MarshalIndent(r.datasets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset registry: %w", err)
	}
	if err := r.manager.WriteFileAtomic(r.file, data); err != nil {
		return apierrors.NewStorageError("write dataset registry", err).
			WithContext("file", filepath.Base(r.file))
	}
	return nil
}

func toDataset(id string, e entry) Dataset {
	format := e.Format
	if format == "" {
		// entries written before formats were recorded
		format, _ = dataprocessing.FormatOf(e.File)
	}
	return Dataset{
		ID:         id,
		Name:       e.Name,
		File:       e.File,
		Format:     format,
		Size:       e.Size,
		UploadedAt: e.UploadedAt,
	}
}

// SanitizeFilename keeps the base name of a client supplied path and drops
// path separators and control characters. Hangul and other letters are kept.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")

	if name == "" || name == "/" {
		return ""
	}
	return name
}

package files

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soilhub/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	paths := config.NewPaths(t.TempDir(), config.Default().Paths)
	require.NoError(t, paths.EnsureDirectories())
	return NewManager(paths, nil)
}

func TestManagerSaveStream(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		maxBytes int64
		wantErr  error
	}{
		{name: "no limit", content: strings.Repeat("x", 100)},
		{name: "exactly at the limit", content: strings.Repeat("x", 16), maxBytes: 16},
		{name: "one byte over", content: strings.Repeat("x", 17), maxBytes: 16, wantErr: ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			path := m.UploadPath("upload.csv")

			n, err := m.SaveStream(path, strings.NewReader(tt.content), tt.maxBytes)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.NoFileExists(t, path)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.content)), n)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestManagerSaveStreamDoesNotOverwrite(t *testing.T) {
	m := newTestManager(t)
	path := m.UploadPath("taken.csv")

	_, err := m.SaveStream(path, strings.NewReader("first"), 0)
	require.NoError(t, err)

	_, err = m.SaveStream(path, strings.NewReader("second"), 0)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestManagerWriteFileAtomic(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.WriteFileAtomic("registry.json", []byte(`{"a":1}`)))
	require.NoError(t, m.WriteFileAtomic("registry.json", []byte(`{"b":2}`)))

	data, err := m.ReadFile("registry.json")
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(data))

	entries, err := os.ReadDir(m.Paths().DataDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file %s left behind", e.Name())
	}
}

func TestManagerResolvePath(t *testing.T) {
	m := newTestManager(t)
	p := m.Paths()

	tests := []struct {
		in   string
		want string
	}{
		{"uploads/a.csv", filepath.Join(p.UploadsDir, "a.csv")},
		{"reports/r.xlsx", filepath.Join(p.ReportsDir, "r.xlsx")},
		{"logs/app.log", filepath.Join(p.LogsDir, "app.log")},
		{"datasets.json", filepath.Join(p.DataDir, "datasets.json")},
		{p.DatasetsFile, p.DatasetsFile},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, m.resolvePath(tt.in))
		})
	}
}

func TestManagerFileOperations(t *testing.T) {
	m := newTestManager(t)

	assert.False(t, m.FileExists("uploads/a.csv"))
	_, err := m.SaveStream("uploads/a.csv", strings.NewReader("abc"), 0)
	require.NoError(t, err)
	assert.True(t, m.FileExists("uploads/a.csv"))

	require.NoError(t, m.DeleteFile("uploads/a.csv"))
	assert.False(t, m.FileExists("uploads/a.csv"))
	assert.NoError(t, m.DeleteFile("uploads/a.csv"), "deleting a missing file is not an error")
}

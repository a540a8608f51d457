package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soilhub/internal/dataprocessing"
	"soilhub/internal/shared/testutil"
)

func TestFindDataFiles(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "data")

	old := testutil.WriteFile(t, dir, "b_old.csv", []byte("x"))
	testutil.WriteFile(t, dir, "a_new.XLSX", []byte("xy"))
	testutil.WriteFile(t, dir, "notes.txt", []byte("x"))
	testutil.WriteFile(t, dir, ".hidden.csv", []byte("x"))
	testutil.WriteFile(t, dir, "~$a_new.xlsx", []byte("x"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "reports.csv"), 0755))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	files, err := NewDiscovery(base).FindDataFiles("data")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "b_old.csv", files[0].Name)
	assert.Equal(t, old, files[0].Path)
	assert.Equal(t, dataprocessing.FormatCSV, files[0].Format)
	assert.Equal(t, "a_new.XLSX", files[1].Name)
	assert.Equal(t, dataprocessing.FormatXLSX, files[1].Format)
	assert.Equal(t, int64(2), files[1].Size)
}

func TestFindDataFilesMissingDir(t *testing.T) {
	_, err := NewDiscovery(t.TempDir()).FindDataFiles("absent")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsLockFile(t *testing.T) {
	assert.True(t, IsLockFile("~$현장A.xlsx"))
	assert.True(t, IsLockFile(filepath.Join("data", "~$b.csv")))
	assert.False(t, IsLockFile("현장A.xlsx"))
	assert.False(t, IsLockFile("a~$.xlsx"))
}

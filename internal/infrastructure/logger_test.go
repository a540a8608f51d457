package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soilhub/internal/config"
)

// lastEntry decodes the last JSON line of a log file
func lastEntry(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "nested", "test.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "info",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("dataset loaded", "records", 42)
	require.NoError(t, CloseLogFile())

	entry := lastEntry(t, logFile)
	assert.Equal(t, "dataset loaded", entry["msg"])
	assert.Equal(t, float64(42), entry["records"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestInitializeLoggerOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	dir := t.TempDir()
	first, err := InitializeLogger(config.LoggingConfig{Output: "file", FilePath: filepath.Join(dir, "a.log")})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Output: "file", FilePath: filepath.Join(dir, "b.log")})
	require.NoError(t, err)

	assert.Same(t, first, second)
	_, statErr := os.Stat(filepath.Join(dir, "b.log"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTraceIDInjection(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "test.log")
	_, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "file", FilePath: logFile})
	require.NoError(t, err)

	ctx := WithTraceID(context.Background(), "trace-123")
	GetLogger().InfoContext(ctx, "with trace")
	require.NoError(t, CloseLogFile())

	assert.Equal(t, "trace-123", lastEntry(t, logFile)["trace_id"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		warnSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, &slog.HandlerOptions{Level: parseLogLevel(tt.level)})

			logger.Debug("debug line")
			logger.Warn("warn line")

			assert.Equal(t, tt.debugSeen, strings.Contains(buf.String(), "debug line"))
			assert.Equal(t, tt.warnSeen, strings.Contains(buf.String(), "warn line"))
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	defer func() { _ = CloseLogFile() }()
	dir := t.TempDir()

	jsonFile := filepath.Join(dir, "json.log")
	logger, err := NewLogger(config.LoggingConfig{Format: "json", Output: "file", FilePath: jsonFile})
	require.NoError(t, err)
	logger.Info("standards loaded", "items", 3)

	entry := lastEntry(t, jsonFile)
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, float64(3), entry["items"])
	assert.NotEmpty(t, entry["version"])

	textFile := filepath.Join(dir, "text.log")
	logger, err = NewLogger(config.LoggingConfig{Format: "text", Output: "file", FilePath: textFile})
	require.NoError(t, err)
	logger.InfoContext(WithTraceID(context.Background(), "trace-7"), "wrote report")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(textFile)
	require.NoError(t, err)
	line := string(content)
	assert.Contains(t, line, `msg="wrote report"`)
	assert.Contains(t, line, "service="+ServiceName)
	assert.Contains(t, line, "trace_id=trace-7")
}

func TestNewLoggerOpenFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := NewLogger(config.LoggingConfig{Output: "both", FilePath: filepath.Join(blocker, "app.log")})
	assert.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	require.NotEmpty(t, traceID)

	assert.Equal(t, traceID, GetTraceID(EnsureTraceID(ctx)), "existing trace id is kept")
	assert.NotEqual(t, traceID, GetTraceID(EnsureTraceID(context.Background())))
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, nil)

	decode := func() map[string]interface{} {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		buf.Reset()
		return entry
	}

	WithComponent(logger, "analysis").Info("component")
	assert.Equal(t, "analysis", decode()["component"])

	WithDataset(logger, "20240101_120000").Info("dataset")
	assert.Equal(t, "20240101_120000", decode()["dataset_id"])

	WithError(logger, os.ErrNotExist).Info("error")
	assert.Contains(t, decode()["error"], "file does not exist")

	assert.Same(t, logger, WithError(logger, nil))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray config.yaml is picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(originalDir) })
	return dir
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 1048576, cfg.Server.MaxHeaderBytes)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.EnableCORS)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
				assert.Equal(t, 50, cfg.Security.RateLimit.Burst)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)

				assert.Equal(t, "data", cfg.Paths.DataDir)
				assert.Equal(t, "datasets.json", cfg.Paths.DatasetsFile)
				assert.Equal(t, "standards.csv", cfg.Paths.StandardsFile)

				assert.Equal(t, "auto", cfg.Analysis.CountMode)
				assert.Equal(t, []string{"concern40", "concern", "countermeasure"}, cfg.Analysis.Levels)
				assert.Empty(t, cfg.Analysis.CountermeasureLabels)
				assert.Equal(t, int64(50), cfg.Analysis.MaxUploadMB)
			},
		},
		{
			name: "custom environment variables",
			env: map[string]string{
				"SOIL_SERVER_PORT":                    "9090",
				"SOIL_SERVER_READ_TIMEOUT":            "30s",
				"SOIL_SECURITY_ALLOWED_ORIGINS":       "http://example.com,https://example.com",
				"SOIL_LOGGING_LEVEL":                  "debug",
				"SOIL_LOGGING_FORMAT":                 "text",
				"SOIL_ANALYSIS_COUNT_MODE":            "samples",
				"SOIL_ANALYSIS_COUNTERMEASURE_LABELS": "대책,조치",
				"SOIL_PATHS_STANDARDS_FILE":           "/srv/soil/standards.csv",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://example.com", "https://example.com"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
				assert.Equal(t, "samples", cfg.Analysis.CountMode)
				assert.Equal(t, []string{"대책", "조치"}, cfg.Analysis.CountermeasureLabels)
				assert.Equal(t, "/srv/soil/standards.csv", cfg.Paths.StandardsFile)
				// untouched sections keep defaults
				assert.Equal(t, 50, cfg.Security.RateLimit.Burst)
			},
		},
		{
			name:    "invalid port number",
			env:     map[string]string{"SOIL_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			env:     map[string]string{"SOIL_SERVER_READ_TIMEOUT": "-5s"},
			wantErr: true,
		},
		{
			name:    "invalid count mode",
			env:     map[string]string{"SOIL_ANALYSIS_COUNT_MODE": "sites"},
			wantErr: true,
		},
		{
			name:    "invalid level",
			env:     map[string]string{"SOIL_ANALYSIS_LEVELS": "concern,severe"},
			wantErr: true,
		},
		{
			name:    "invalid log format",
			env:     map[string]string{"SOIL_LOGGING_FORMAT": "xml"},
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"SOIL_SERVER_PORT": "eighty"},
			wantErr: true,
		},
		{
			name: "config file with environment override",
			env: map[string]string{
				"SOIL_SERVER_PORT":   "7070",
				"SOIL_LOGGING_LEVEL": "warn",
			},
			file: `
server:
  port: 6060
  read_timeout: 20s
logging:
  level: error
analysis:
  countermeasure_labels: ["대책"]
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, 20*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"대책"}, cfg.Analysis.CountermeasureLabels)
				assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
			},
		},
		{
			name:    "invalid yaml file",
			file:    "server: [unclosed",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdirTemp(t)
			t.Setenv(ConfigFileEnv, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(tt.file), 0644))
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadExplicitConfigFile(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "soil.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 5050\n"), 0644))
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5050, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "zero write timeout", mutate: func(c *Config) { c.Server.WriteTimeout = 0 }, wantErr: true},
		{name: "cors without origins", mutate: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: true},
		{
			name:   "no origins needed without cors",
			mutate: func(c *Config) { c.Security.AllowedOrigins = nil; c.Security.EnableCORS = false },
		},
		{name: "non-positive upload limit", mutate: func(c *Config) { c.Analysis.MaxUploadMB = 0 }, wantErr: true},
		{
			name:   "unknown log output falls back to both",
			mutate: func(c *Config) { c.Logging.Output = "syslog"; c.Logging.FilePath = "" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "both", c.Logging.Output)
				assert.Equal(t, "logs/app.log", c.Logging.FilePath)
			},
		},
		{
			name:   "console output is kept",
			mutate: func(c *Config) { c.Logging.Output = "console" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "console", c.Logging.Output)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	base := t.TempDir()
	cfg.Paths.BaseDir = base

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "datasets.json"), paths.DatasetsFile)

	cfg.Paths.BaseDir = ""
	paths, err = cfg.ResolvePaths()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(paths.BaseDir))
}

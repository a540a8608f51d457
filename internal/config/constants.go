package config

import (
	"time"

	"soilhub/pkg/contracts"
)

// Application constants
const (
	// Application Info
	AppName    = "Soil Exceedance Hub"
	AppVersion = contracts.Version

	// Environment variable prefix consumed by envconfig
	EnvPrefix = "SOIL"
	// ConfigFileEnv points at an explicit YAML config file
	ConfigFileEnv = "SOIL_CONFIG"

	// File Paths (relative to the base directory)
	DefaultDataDir       = "data"
	DefaultUploadsDir    = "data"
	DefaultReportsDir    = "data/reports"
	DefaultLogsDir       = "logs"
	DefaultDatasetsFile  = "datasets.json"
	DefaultStandardsFile = "standards.csv"

	// Upload limits
	DefaultMaxUploadMB = 50
	DefaultPreviewRows = 100

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Timeouts
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// API Endpoints
	APIBasePath     = "/api"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
	// WebSocketPath serves service event notifications
	WebSocketPath = "/ws"
)

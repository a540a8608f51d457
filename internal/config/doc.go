// Package config provides centralized configuration management for the soil
// exceedance hub. It loads configuration from several sources, validates it,
// and resolves every file system path the application touches.
//
// # Configuration Sources
//
// Configuration is layered in the following order, later sources winning:
//
//	1. Default values (Default())
//	2. YAML configuration file (config.yaml, configs/config.yaml or $SOIL_CONFIG)
//	3. Environment variables
//
// # Environment Variables
//
// All environment variables follow the pattern SOIL_<SECTION>_<FIELD>:
//
//	SOIL_SERVER_PORT=8080
//	SOIL_LOGGING_LEVEL=debug
//	SOIL_PATHS_STANDARDS_FILE=/srv/soil/standards.csv
//	SOIL_ANALYSIS_COUNT_MODE=samples
//	SOIL_ANALYSIS_COUNTERMEASURE_LABELS=대책
//
// # Path Management
//
// Paths resolves the configured relative paths against a base directory,
// which defaults to the directory of the running executable:
//
//	paths, err := cfg.ResolvePaths()
//	uploadPath := paths.GetUploadPath("20240101_120000_site.csv")
//	reportPath := paths.GetReportPath("analysis.xlsx")
package config

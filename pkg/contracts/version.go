// Package contracts holds the versioned contracts shared by the soilhub
// binaries and API clients.
package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the release version of both binaries
	Version = "1.0.0"

	// ReportFormatVersion changes whenever the analysis table layout does
	ReportFormatVersion = "v1"

	// APIVersion prefixes the typed API payloads
	APIVersion = "v1"
)

// Stamped by build.go through -ldflags -X.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is served by /api/version
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
	ReportFormat string `json:"report_format"`
	APIVersion   string `json:"api_version"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
		ReportFormat: ReportFormatVersion,
		APIVersion:   APIVersion,
	}
}

// GetFullVersionString is the line printed by `analyze -version`
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("soilhub v%s (report %s, commit %s, built %s, %s %s)",
		info.Version, info.ReportFormat, info.GitCommit, info.BuildTime, info.GoVersion, info.Platform)
}

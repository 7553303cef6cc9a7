// Package version provides build version information for Civica.
// Values are injected at build time via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version, set at build time.
	Version = "dev"

	// Commit is the git commit hash, set at build time.
	Commit = "unknown"

	// Date is the build date, set at build time.
	Date = "unknown"
)

// Info bundles version details for structured output.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetInfo returns the full version info.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// Short returns just the version number.
func Short() string {
	return Version
}

// String returns a human-readable version line.
func String() string {
	return fmt.Sprintf("civica %s (commit %s, built %s, %s)",
		Version, Commit, Date, runtime.Version())
}

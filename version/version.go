package version

import "fmt"

// values are set via ldflags on release builds
//
//nolint:gochecknoglobals // by design
var (
	Version   = "0.0.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"

	FullVersion = fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
)

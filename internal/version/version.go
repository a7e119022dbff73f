// Package version carries build metadata stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/banshee-data/rover/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	Version   = "dev"
	GitSHA    = "unknown"
	BuildTime = "unknown"
)

// Build is the metadata attached to telemetry reports.
type Build struct {
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time,omitempty"`
}

// Current returns the stamped build metadata.
func Current() Build {
	return Build{Version: Version, GitSHA: GitSHA, BuildTime: BuildTime}
}

func (b Build) String() string {
	sha := b.GitSHA
	if len(sha) > 8 {
		sha = sha[:8]
	}
	return fmt.Sprintf("%s (%s, built %s)", b.Version, sha, b.BuildTime)
}

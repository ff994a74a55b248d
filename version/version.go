// Package version provides build and version information for gorgon.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables can be set via ldflags at build time for explicit versioning. If not set, they are populated from
// runtime/debug.ReadBuildInfo().
var (
	// Version is the semantic version of the build.
	Version = "0.3.0"
	// GitCommit is the git commit hash.
	GitCommit = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && GitCommit == "" {
			GitCommit = setting.Value
		}
	}
}

// String returns the full version string for the build.
func String() string {
	s := Version
	if GitCommit != "" {
		commit := GitCommit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		s = fmt.Sprintf("%s (%s)", s, commit)
	}
	return fmt.Sprintf("%s %s/%s", s, runtime.GOOS, runtime.GOARCH)
}

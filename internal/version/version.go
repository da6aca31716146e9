package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release of the build.
	Version = "0.1.0"
	// Commit is the short git SHA, "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns the release string alone.
func Short() string {
	return Version
}

// Full returns the release with commit, build time and Go toolchain.
func Full() string {
	return fmt.Sprintf("alert-hub %s (commit %s, built %s, %s)", Version, Commit, BuildTime, runtime.Version())
}

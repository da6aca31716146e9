// Package version carries the build identity of the alert-hub binaries.
//
// Version, Commit and BuildTime are set with -ldflags at release time.
package version

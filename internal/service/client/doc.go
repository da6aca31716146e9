// Package client implements the alert-ctl commands.
//
// Each command connects to the alert server, performs one call and prints a
// human-readable result with relative change times.
package client

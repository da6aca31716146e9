// Package common holds helpers shared by several services.
//
// It wraps the AlertService gRPC client with per-call timeouts and detects the
// local actor (user@host) recorded with manual responses.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

// Package memory implements an in-process alert manager.
//
// Alerts live in a map keyed by UUID and are indexed in a B-tree by the time
// of their latest change, so "what changed since" queries walk only the tail.
// Nothing is persisted.
package memory

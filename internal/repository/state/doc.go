// Package state persists snapshots of in-memory alert managers.
//
// A FileRepository writes one JSON snapshot per source so that a memory
// source keeps its alerts and their history across restarts.
package state

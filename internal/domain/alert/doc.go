// Package alert contains the core domain types for alert aggregation.
//
// It defines the Alert contract every source reports, its append-only history
// of ChangeEvents, the State and Level enumerations, and Record, the
// copy-on-write Alert implementation shared by the bundled sources.
package alert

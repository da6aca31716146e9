// Package timeline exposes a Redis alert timeline as a read-only source.
//
// The timeline is a sorted set ("alerts:timeline") whose members are keys of
// JSON-encoded alerts ("alert:<n>") scored by their creation time in Unix
// seconds. Other services write it; this package only reads, and may forward
// the "alert_events" channel as availability pushes.
package timeline

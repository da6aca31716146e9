// Package provider implements the aggregating alert provider.
//
// A Provider unifies any number of registered alert Sources into one logical
// stream. Each alert it hands out is wrapped in a Decorator whose CompositeID
// ("<local-id>:<source-key>") routes lookups back to the owning source.
//
// Managers (sources that support state transitions) push "alerts available"
// notifications into the provider. The provider then pulls everything that
// changed since its watermark, fans each alert out to Listeners on an
// unbounded pool, and queues actionable alerts for Responders, which run on a
// single serial worker. A responder commits a decision through a one-shot
// Response; the resulting alert re-enters listener and responder dispatch as
// new tasks rather than as nested calls.
package provider

// Package responder contains the responders shipped with alert-hub.
//
// Rule reacts to queued actionable alerts by matching their type and severity
// against configured rules. Once answers a single alert on demand and is what
// the RespondTo RPC uses.
package responder

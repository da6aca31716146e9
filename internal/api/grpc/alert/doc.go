// Package alert implements the gRPC transport for the alert service.
//
// The service "alerthub.v1.AlertService" is described by hand and carried
// entirely in protobuf well-known types: alerts travel as
// google.protobuf.Struct, identities as StringValue and lists as ListValue.
// This keeps the wire contract stable without a code generation step.
package alert

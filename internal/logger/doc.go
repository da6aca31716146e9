// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console or JSON encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities that can be changed at runtime,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The alert pipeline runs most of its work on background goroutines, so every
// task carries the caller's context and extracts its scoped logger from it.
package logger

package alert

import "errors"

var (
	// ErrNotFound is returned by sources that have no alert for a local ID.
	ErrNotFound = errors.New("alert not found")
	// ErrInvalidIdentity is returned when identity text is malformed or the
	// identity value has an unrecognized type.
	ErrInvalidIdentity = errors.New("invalid alert identity")
	// ErrUnresolvedSource is returned when an identity names a source key that
	// is not registered.
	ErrUnresolvedSource = errors.New("unresolved alert source")
	// ErrUnresolvedAlert is returned when the owning source rejects the
	// local part of an identity.
	ErrUnresolvedAlert = errors.New("unresolved alert")
	// ErrInvalidResponseState is returned when a response action is invoked a
	// second time or its alert no longer exists.
	ErrInvalidResponseState = errors.New("invalid response state")
)

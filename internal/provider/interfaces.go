package provider

import (
	"context"
	"time"

	"github.com/oshokin/alert-hub/internal/domain/alert"
)

// Source produces alerts it owns.
type Source interface {
	// GetAlert returns the alert with the given local ID or alert.ErrNotFound.
	GetAlert(ctx context.Context, id alert.ID) (alert.Alert, error)
	// GetAlerts returns alerts whose latest event is after since.
	GetAlerts(ctx context.Context, since time.Time) ([]alert.Alert, error)
	// Resolve parses the text form of a local ID. Malformed input fails with
	// alert.ErrInvalidIdentity.
	Resolve(text string) (alert.ID, error)
	// AsManager reports whether the source also supports state transitions.
	AsManager() (Manager, bool)
}

// Manager is a Source that can transition alert state and push notifications.
type Manager interface {
	Source

	// ChangeState appends a transition to target and returns the resulting alert.
	ChangeState(ctx context.Context, target alert.Alert, state alert.State, content any) (alert.Alert, error)
	// Remove clears the alert and returns its final form.
	Remove(ctx context.Context, id alert.ID) (alert.Alert, error)
	// AddReceiver subscribes r to "alerts available" pushes.
	AddReceiver(r NotifyReceiver)
}

// NotifyReceiver accepts pushes from managers.
type NotifyReceiver interface {
	AlertsAvailable(ctx context.Context, count int)
}

// Keyed lets a source choose its own registry key instead of one derived
// from its instance identity. Keys must be non-empty and contain no ':'.
// Sources that are not pointers (or other reference kinds) must implement it.
type Keyed interface {
	SourceKey() string
}

// Listener is a passive observer of alert changes.
type Listener interface {
	OnAlertChange(ctx context.Context, a alert.Alert) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, a alert.Alert) error

// OnAlertChange implements Listener.
func (f ListenerFunc) OnAlertChange(ctx context.Context, a alert.Alert) error {
	return f(ctx, a)
}

// Responder is an active observer that may decide a transition for an
// actionable alert by calling exactly one Response action, or none.
type Responder interface {
	OnAlertChange(ctx context.Context, a alert.Alert, response Response) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, a alert.Alert, response Response) error

// OnAlertChange implements Responder.
func (f ResponderFunc) OnAlertChange(ctx context.Context, a alert.Alert, response Response) error {
	return f(ctx, a, response)
}

// Response commits a responder's decision. Only the first action call takes
// effect; later calls fail with alert.ErrInvalidResponseState.
type Response interface {
	InProgress(ctx context.Context, content any) error
	Handle(ctx context.Context, content any) error
	Unhandle(ctx context.Context, content any) error
	Clear(ctx context.Context) error
}

package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/provider"
)

// Action is a responder decision.
type Action int

// Supported actions.
const (
	ActionInProgress Action = iota + 1
	ActionHandle
	ActionUnhandle
	ActionClear
)

//nolint:gochecknoglobals // Lookup table for Action names.
var actionNames = map[Action]string{
	ActionInProgress: "in_progress",
	ActionHandle:     "handle",
	ActionUnhandle:   "unhandle",
	ActionClear:      "clear",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}

	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// ParseAction parses an action name. Dashes are accepted in place of
// underscores.
func ParseAction(s string) (Action, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")

	for action, name := range actionNames {
		if name == s {
			return action, nil
		}
	}

	return 0, fmt.Errorf("unknown responder action %q", s)
}

// Target returns the state the action moves an alert into.
func (a Action) Target() alert.State {
	switch a {
	case ActionInProgress:
		return alert.StateInProgress
	case ActionHandle:
		return alert.StateHandled
	case ActionUnhandle:
		return alert.StateUnhandled
	case ActionClear:
		return alert.StateCleared
	default:
		return alert.StateCreated
	}
}

// Apply commits the action through response.
func (a Action) Apply(ctx context.Context, response provider.Response, content any) error {
	switch a {
	case ActionInProgress:
		return response.InProgress(ctx, content)
	case ActionHandle:
		return response.Handle(ctx, content)
	case ActionUnhandle:
		return response.Unhandle(ctx, content)
	case ActionClear:
		return response.Clear(ctx)
	default:
		return fmt.Errorf("unknown responder action %d", int(a))
	}
}

package alert

import (
	"fmt"
	"strings"
)

// State is the lifecycle state recorded by a ChangeEvent.
type State int

// Alert states.
const (
	StateCreated State = iota
	StateInProgress
	StateHandled
	StateUnhandled
	StateCleared
	maxState
)

//nolint:gochecknoglobals // Lookup table for State names.
var stateNames = [...]string{
	StateCreated:    "created",
	StateInProgress: "in_progress",
	StateHandled:    "handled",
	StateUnhandled:  "unhandled",
	StateCleared:    "cleared",
}

func (s State) String() string {
	if s >= 0 && s < maxState {
		return stateNames[s]
	}

	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseState parses a case-insensitive state name. Dashes are accepted in
// place of underscores, so "in-progress" parses as StateInProgress.
func ParseState(s string) (State, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")

	for i, name := range stateNames {
		if name == s {
			return State(i), nil
		}
	}

	return StateCreated, fmt.Errorf("unknown alert state %q", s)
}

package alert

import (
	"fmt"
	"strings"
)

// Level is the severity of an alert.
type Level int

// Known severity levels, ordered from least to most severe.
const (
	LevelInfo Level = iota
	LevelWarning
	LevelMinor
	LevelMajor
	LevelCritical
	LevelFatal
	maxLevel
)

//nolint:gochecknoglobals // Lookup table for Level names.
var levelNames = [...]string{
	LevelInfo:     "info",
	LevelWarning:  "warning",
	LevelMinor:    "minor",
	LevelMajor:    "major",
	LevelCritical: "critical",
	LevelFatal:    "fatal",
}

func (l Level) String() string {
	if l >= 0 && l < maxLevel {
		return levelNames[l]
	}

	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}

	return LevelInfo, fmt.Errorf("unknown alert level %q", s)
}

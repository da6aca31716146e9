// Package logging provides a listener that writes every alert change to the
// application log.
package logging

import (
	"context"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
)

// Listener logs alert changes. Alerts at or above the escalation level are
// logged as warnings, the rest at info.
type Listener struct {
	level      zapcore.Level
	escalateAt alert.Level
}

// New creates a listener that logs at level, independent of the global log
// level, escalating alerts of severity escalateAt and above.
func New(level zapcore.Level, escalateAt alert.Level) *Listener {
	return &Listener{
		level:      level,
		escalateAt: escalateAt,
	}
}

// OnAlertChange implements provider.Listener.
func (l *Listener) OnAlertChange(ctx context.Context, a alert.Alert) error {
	log := logger.Leveled(ctx, l.level).With(fields(a)...)

	if a.Level() >= l.escalateAt {
		log.Warn("Alert changed")
	} else {
		log.Info("Alert changed")
	}

	return nil
}

func fields(a alert.Alert) []any {
	kvs := []any{
		"alert_id", a.ID().String(),
		"type", a.Type(),
		"level", a.Level().String(),
		"state", alert.CurrentState(a).String(),
		"actionable", a.Actionable(),
	}

	if description := a.Description(); description != "" {
		kvs = append(kvs, "description", description)
	}

	if changed := alert.LatestChangeTime(a); !changed.IsZero() {
		kvs = append(kvs, "changed_at", changed)
	}

	return kvs
}

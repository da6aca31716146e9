package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// levelCore runs a core at its own level, independent of the level the
// wrapped core was built with.
type levelCore struct {
	zapcore.Core

	enabler zapcore.LevelEnabler
}

// Enabled implements zapcore.LevelEnabler.
func (c *levelCore) Enabled(l zapcore.Level) bool {
	return c.enabler.Enabled(l)
}

// Check writes through the wrapped core whenever this core's level allows it.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// With keeps the override on derived cores.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{
		Core:    c.Core.With(fields),
		enabler: c.enabler,
	}
}

// WithLevel overrides the level of an existing logger.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithLevel(enabler zapcore.LevelEnabler) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &levelCore{
			Core:    core,
			enabler: enabler,
		}
	})
}

// Leveled returns the context logger running at level.
func Leveled(ctx context.Context, level zapcore.LevelEnabler) *zap.SugaredLogger {
	return FromContext(ctx).WithOptions(WithLevel(level))
}

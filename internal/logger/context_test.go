package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal verifies a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithKV_ScopesFields checks that context helpers carry fields into log entries.
func TestWithKV_ScopesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "provider")
	ctx = WithKV(ctx, "source_key", "abc")
	ctx = WithFields(ctx, zap.Int("count", 3))

	InfoKV(ctx, "Alerts available", "batch", 1)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "provider", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	require.Equal(t, "abc", fields["source_key"])
	require.EqualValues(t, 3, fields["count"])
	require.EqualValues(t, 1, fields["batch"])
}

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/oshokin/alert-hub/internal/domain/alert"
)

type fixedState struct {
	pending int
	seen    time.Time
}

func (s fixedState) PendingResponses() int { return s.pending }

func (s fixedState) LastSeen() time.Time { return s.seen }

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	major := alert.NewRecord(alert.StringID("1"), alert.Params{Level: alert.LevelMajor}, created)

	require.NoError(t, m.OnAlertChange(t.Context(), major))
	require.NoError(t, m.OnAlertChange(t.Context(), major))

	require.InDelta(t, 2, testutil.ToFloat64(m.changes.WithLabelValues("major", "created")), 0)

	m.ObserveError(nil)
	m.ObserveError(multierr.Combine(errors.New("a"), errors.New("b")))
	m.ObserveError(errors.New("c"))

	require.InDelta(t, 3, testutil.ToFloat64(m.failures), 0)
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New()
	m.Track(fixedState{pending: 4, seen: time.Unix(1700000000, 0)})

	server := httptest.NewServer(m.Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "alert_hub_pending_responses 4")
	require.Contains(t, string(body), "alert_hub_watermark_timestamp_seconds 1.7e+09")
}

package client

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	api "github.com/oshokin/alert-hub/internal/api/grpc/alert"
	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/responder"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// stubService serves one alert.
type stubService struct {
	record alert.Alert

	mu      sync.Mutex
	content any
}

func (s *stubService) lastContent() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.content
}

func (s *stubService) GetAlert(_ context.Context, id string) (alert.Alert, error) {
	if id != s.record.ID().String() {
		return nil, alert.ErrNotFound
	}

	return s.record, nil
}

func (s *stubService) ListAlerts(context.Context, time.Time) ([]alert.Alert, error) {
	return []alert.Alert{s.record}, nil
}

func (s *stubService) ListAlertsSince(context.Context, string) ([]alert.Alert, error) {
	return nil, nil
}

func (s *stubService) RespondTo(_ context.Context, id string, _ responder.Action, content any) (bool, error) {
	s.mu.Lock()
	s.content = content
	s.mu.Unlock()

	return id == s.record.ID().String(), nil
}

func (s *stubService) RaiseAlert(context.Context, string, alert.Params) (string, error) {
	return "n1:mem", nil
}

func startServer(t *testing.T, svc api.Service) string {
	t.Helper()

	lis, err := (&net.ListenConfig{}).Listen(t.Context(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	api.RegisterAlertServiceServer(srv, api.NewServer(svc))

	go func() {
		_ = srv.Serve(lis)
	}()

	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func newStub() *stubService {
	created := testNow.Add(-3 * time.Minute)

	record := alert.NewRecord(alert.StringID("a1:mem"), alert.Params{
		Type:        "urn:disk",
		Description: "disk full",
		Level:       alert.LevelMajor,
		Actionable:  true,
	}, created).WithEvent(alert.ChangeEvent{
		State:      alert.StateInProgress,
		Content:    "paged",
		ChangeTime: testNow.Add(-time.Minute),
	})

	return &stubService{record: record}
}

// TestCommands runs every command against a live server.
func TestCommands(t *testing.T) {
	t.Parallel()

	svc := newStub()
	address := startServer(t, svc)

	var out bytes.Buffer

	opts := &Options{
		ConfigPath:    filepath.Join(t.TempDir(), "missing.yaml"),
		ServerAddress: address,
		Out:           &out,
		now:           func() time.Time { return testNow },
	}

	require.NoError(t, Get(t.Context(), opts, "a1:mem"))
	require.Contains(t, out.String(), "ID:          a1:mem")
	require.Contains(t, out.String(), "Description: disk full")
	require.Contains(t, out.String(), "created      3 minutes ago")
	require.Contains(t, out.String(), "in_progress  1 minute ago  paged")

	out.Reset()
	require.NoError(t, List(t.Context(), opts, time.Time{}, ""))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	require.Contains(t, lines[1], "a1:mem")
	require.Contains(t, lines[1], "in_progress")
	require.Contains(t, lines[1], "1 minute ago")

	out.Reset()
	require.NoError(t, List(t.Context(), opts, time.Time{}, "a1:mem"))
	require.Equal(t, "no alerts\n", out.String())

	out.Reset()
	require.NoError(t, Respond(t.Context(), opts, "a1:mem", "handle", "fixed"))
	require.Equal(t, "a1:mem: handle\n", out.String())
	require.Equal(t, "fixed", svc.lastContent())

	out.Reset()
	require.NoError(t, Respond(t.Context(), opts, "zz:mem", "handle", ""))
	require.Equal(t, "zz:mem: nothing to respond to\n", out.String())
	require.Contains(t, svc.lastContent(), "by ")

	out.Reset()
	require.NoError(t, Raise(t.Context(), opts, &RaiseOptions{
		Source: "mem",
		Params: alert.Params{Type: "urn:x"},
	}))
	require.Equal(t, "n1:mem\n", out.String())

	require.Error(t, Get(t.Context(), opts, "zz:mem"))
}

// TestResolveServer needs either settings or an explicit address.
func TestResolveServer(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, _, err := resolveServer(&Options{ConfigPath: missing})
	require.Error(t, err)

	address, timeout, err := resolveServer(&Options{ConfigPath: missing, ServerAddress: "127.0.0.1:1"})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:1", address)
	require.Positive(t, timeout)
}

package provider

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alert-hub/internal/domain/alert"
)

// newTestProvider builds a provider whose watermark starts at base.
func newTestProvider(t *testing.T, base time.Time, opts ...Option) *Provider {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(base)

	p := New(append([]Option{WithClock(mock)}, opts...)...)
	t.Cleanup(p.Close)

	return p
}

// TestRegistration_ListenerSetResponderSequence locks in the asymmetry between
// listener (set) and responder (sequence) registration.
func TestRegistration_ListenerSetResponderSequence(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		base := time.Now()
		p := newTestProvider(t, base)

		mgr := newFakeManager("m")
		_, err := p.AddManager(mgr)
		require.NoError(t, err)

		listener := new(recordingListener)
		p.AddListener(listener)
		p.AddListener(listener)

		var calls atomic.Int32

		responder := &countingResponder{calls: &calls}
		p.AddResponder(responder)
		p.AddResponder(responder)

		mgr.add("a1", true, base.Add(time.Second))
		mgr.push(t.Context(), 1)
		synctest.Wait()

		require.Len(t, listener.received(), 1)
		require.EqualValues(t, 2, calls.Load())
	})
}

// countingResponder counts invocations without responding.
type countingResponder struct {
	calls *atomic.Int32
}

func (r *countingResponder) OnAlertChange(_ context.Context, _ alert.Alert, _ Response) error {
	r.calls.Add(1)

	return nil
}

// TestGetAlerts_ConcatenatesInRegistrationOrder checks per-source concatenation without global sorting.
func TestGetAlerts_ConcatenatesInRegistrationOrder(t *testing.T) {
	t.Parallel()

	base := time.Unix(10_000, 0)
	p := newTestProvider(t, base)

	first := newFakeManager("first")
	second := newFakeSource("second")

	_, err := p.AddManager(first)
	require.NoError(t, err)
	_, err = p.AddSource(second)
	require.NoError(t, err)

	first.add("a", false, base.Add(3*time.Second))
	first.add("b", false, base.Add(1*time.Second))
	second.add("c", false, base.Add(2*time.Second))

	alerts, err := p.GetAlerts(t.Context(), base)
	require.NoError(t, err)
	require.Equal(t, []string{"a:first", "b:first", "c:second"}, idsOf(alerts))

	// Every listed alert resolves back with a non-empty history.
	for _, listed := range alerts {
		got, err := p.GetAlert(t.Context(), listed.ID().String())
		require.NoError(t, err)
		require.NotEmpty(t, got.Events())
		require.Equal(t, listed.ID(), got.ID())

		decorated, ok := got.(*Decorator)
		require.True(t, ok)
		require.Equal(t, listed.Description(), decorated.SourceAlert().Description())
	}

	// The watermark comes from the latest event of the reference alert.
	since, err := p.GetAlertsSince(t.Context(), "b:first")
	require.NoError(t, err)
	require.Equal(t, []string{"a:first", "c:second"}, idsOf(since))

	// Unknown alerts yield nothing.
	none, err := p.GetAlertsSince(t.Context(), "zzz:first")
	require.NoError(t, err)
	require.Empty(t, none)
}

// TestGetAlerts_PartialOnSourceFailure returns healthy sources' alerts with the combined error.
func TestGetAlerts_PartialOnSourceFailure(t *testing.T) {
	t.Parallel()

	base := time.Unix(10_000, 0)
	p := newTestProvider(t, base)

	healthy := newFakeManager("ok")
	broken := newFakeManager("broken")
	broken.listErr = errTestSource

	_, err := p.AddManager(healthy)
	require.NoError(t, err)
	_, err = p.AddManager(broken)
	require.NoError(t, err)

	healthy.add("x", false, base.Add(time.Second))

	alerts, err := p.GetAlerts(t.Context(), base)
	require.ErrorIs(t, err, errTestSource)
	require.Equal(t, []string{"x:ok"}, idsOf(alerts))
}

// TestResolve_Errors covers malformed, unregistered and rejected identities.
func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, time.Unix(0, 0))

	_, err := p.AddManager(newFakeManager("k"))
	require.NoError(t, err)

	_, err = p.Resolve("not-a-valid-id")
	require.ErrorIs(t, err, alert.ErrInvalidIdentity)

	_, err = p.Resolve("localid:unknown-key")
	require.ErrorIs(t, err, alert.ErrUnresolvedSource)

	_, err = p.Resolve("bad-id:k")
	require.ErrorIs(t, err, alert.ErrUnresolvedAlert)

	_, err = p.Resolve(42)
	require.ErrorIs(t, err, alert.ErrInvalidIdentity)

	_, err = p.Resolve((*CompositeID)(nil))
	require.ErrorIs(t, err, alert.ErrInvalidIdentity)

	id := CompositeID{Local: alert.StringID("x"), Source: "k"}
	resolved, err := p.Resolve(id)
	require.NoError(t, err)
	require.Equal(t, id, resolved)

	resolved, err = p.Resolve(&id)
	require.NoError(t, err)
	require.Equal(t, id, resolved)

	_, err = p.GetAlert(t.Context(), "not-a-valid-id")
	require.ErrorIs(t, err, alert.ErrInvalidIdentity)

	_, err = p.GetAlertsSince(t.Context(), "localid:unknown-key")
	require.ErrorIs(t, err, alert.ErrUnresolvedSource)

	// A pre-built identity whose source is gone degrades to not found.
	_, err = p.GetAlert(t.Context(), CompositeID{Local: alert.StringID("x"), Source: "gone"})
	require.ErrorIs(t, err, alert.ErrNotFound)
}

// TestAddSource_RejectsAmbiguousKeys refuses keys that would break decoding.
func TestAddSource_RejectsAmbiguousKeys(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, time.Unix(0, 0))

	_, err := p.AddSource(newFakeSource("a:b"))
	require.ErrorIs(t, err, alert.ErrInvalidIdentity)

	_, err = p.AddManager(newFakeManager(""))
	require.ErrorIs(t, err, alert.ErrInvalidIdentity)

	_, err = p.AddSource(nil)
	require.ErrorIs(t, err, alert.ErrInvalidIdentity)

	// A value source without its own key has no identity to derive one from.
	type valueSource struct{ Source }

	_, err = p.AddSource(valueSource{newFakeSource("v")})
	require.ErrorIs(t, err, alert.ErrInvalidIdentity)
	require.ErrorContains(t, err, "must be a pointer or implement Keyed")
}

// TestAddSource_SameKeyReplaces keeps one entry per key.
func TestAddSource_SameKeyReplaces(t *testing.T) {
	t.Parallel()

	base := time.Unix(10_000, 0)
	p := newTestProvider(t, base)

	old := newFakeSource("dup")
	old.add("old", false, base.Add(time.Second))

	replacement := newFakeSource("dup")
	replacement.add("new", false, base.Add(time.Second))

	_, err := p.AddSource(old)
	require.NoError(t, err)

	key, err := p.AddSource(replacement)
	require.NoError(t, err)
	require.Equal(t, "dup", key)

	alerts, err := p.GetAlerts(t.Context(), base)
	require.NoError(t, err)
	require.Equal(t, []string{"new:dup"}, idsOf(alerts))
}

func idsOf(alerts []alert.Alert) []string {
	result := make([]string, 0, len(alerts))
	for _, a := range alerts {
		result = append(result, a.ID().String())
	}

	return result
}

package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alert-hub/internal/domain/alert"
)

// TestIdentity_RoundTrip verifies decode(encode(id)) == id for every alert a source reports.
func TestIdentity_RoundTrip(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager("src1")
	base := time.Unix(1_000, 0)

	mgr.add("plain", false, base.Add(time.Second))
	mgr.add("urn:feed:42", true, base.Add(2*time.Second))

	table := map[string]Source{mgr.key: mgr}

	alerts, err := mgr.GetAlerts(t.Context(), base)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	for _, a := range alerts {
		id := CompositeID{Local: a.ID(), Source: mgr.key}

		decoded, err := Decode(Encode(id), table)
		require.NoError(t, err)
		require.True(t, id.Equal(decoded))
		require.Equal(t, id, decoded)
	}
}

// TestDecode_SplitsAtLastColon keeps colons in local IDs intact.
func TestDecode_SplitsAtLastColon(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager("k")

	id, err := Decode("a:b:c:k", map[string]Source{"k": mgr})
	require.NoError(t, err)
	require.Equal(t, "a:b:c", id.Local.String())
	require.Equal(t, "k", id.Source)
	require.Equal(t, "a:b:c:k", id.String())
}

// TestDecode_Errors covers the identity error taxonomy.
func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	table := map[string]Source{"k": newFakeManager("k")}

	cases := map[string]error{
		"not-a-valid-id":      alert.ErrInvalidIdentity,
		"local:":              alert.ErrInvalidIdentity,
		"localid:unknown-key": alert.ErrUnresolvedSource,
		"bad-local:k":         alert.ErrUnresolvedAlert,
	}

	for text, want := range cases {
		_, err := Decode(text, table)
		require.ErrorIs(t, err, want, text)
	}
}

// TestSourceKey_InstanceIdentity checks derived keys follow instances, not values.
func TestSourceKey_InstanceIdentity(t *testing.T) {
	t.Parallel()

	// Embedding the interface hides SourceKey, so keys are derived.
	type plain struct{ Source }

	a := &plain{newFakeSource("x")}
	b := &plain{newFakeSource("x")}

	require.Equal(t, SourceKey(a), SourceKey(a))
	require.NotEqual(t, SourceKey(a), SourceKey(b))
	require.NotContains(t, SourceKey(a), separator)

	// Keyed sources pick their own key.
	require.Equal(t, "x", SourceKey(newFakeManager("x")))

	// Values have no instance identity: equal copies would collide.
	require.Empty(t, SourceKey(plain{newFakeSource("x")}))
}

// TestCompositeID_Equal compares by text of both parts.
func TestCompositeID_Equal(t *testing.T) {
	t.Parallel()

	a := CompositeID{Local: alert.StringID("1"), Source: "s"}

	require.True(t, a.Equal(CompositeID{Local: alert.StringID("1"), Source: "s"}))
	require.False(t, a.Equal(CompositeID{Local: alert.StringID("1"), Source: "t"}))
	require.False(t, a.Equal(CompositeID{Local: alert.StringID("2"), Source: "s"}))
}

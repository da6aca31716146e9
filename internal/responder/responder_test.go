package responder

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/provider"
	"github.com/oshokin/alert-hub/internal/repository/memory"
)

// recordedResponse remembers the action it was asked to perform.
type recordedResponse struct {
	calls   []string
	content any
}

func (r *recordedResponse) InProgress(_ context.Context, content any) error {
	r.calls = append(r.calls, "in_progress")
	r.content = content

	return nil
}

func (r *recordedResponse) Handle(_ context.Context, content any) error {
	r.calls = append(r.calls, "handle")
	r.content = content

	return nil
}

func (r *recordedResponse) Unhandle(_ context.Context, content any) error {
	r.calls = append(r.calls, "unhandle")
	r.content = content

	return nil
}

func (r *recordedResponse) Clear(context.Context) error {
	r.calls = append(r.calls, "clear")

	return nil
}

func record(alertType string, level alert.Level, states ...alert.State) *alert.Record {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := alert.NewRecord(alert.StringID("x"), alert.Params{Type: alertType, Level: level, Actionable: true}, start)

	for i, s := range states {
		r = r.WithEvent(alert.ChangeEvent{State: s, ChangeTime: start.Add(time.Duration(i+1) * time.Second)})
	}

	return r
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]Action{
		"handle":      ActionHandle,
		"IN-PROGRESS": ActionInProgress,
		" unhandle ":  ActionUnhandle,
		"clear":       ActionClear,
	} {
		got, err := ParseAction(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got)
	}

	_, err := ParseAction("ignore")
	require.Error(t, err)
}

func TestRule_YAML(t *testing.T) {
	t.Parallel()

	var rules []Rule

	err := yaml.Unmarshal([]byte(`
- name: disks
  type_prefix: "urn:disk"
  min_level: major
  action: in_progress
  content: paged on-call
`), &rules)
	require.NoError(t, err)
	require.Equal(t, []Rule{{
		Name:       "disks",
		TypePrefix: "urn:disk",
		MinLevel:   alert.LevelMajor,
		Action:     ActionInProgress,
		Content:    "paged on-call",
	}}, rules)
	require.NoError(t, rules[0].Validate())

	require.ErrorIs(t, Rule{Name: "no action"}.Validate(), ErrRuleAction)
	require.ErrorIs(t, Rule{Action: ActionHandle}.Validate(), ErrRuleName)
}

func TestRuleResponder_OnAlertChange(t *testing.T) {
	t.Parallel()

	r := NewRuleResponder(
		Rule{Name: "fatal", MinLevel: alert.LevelFatal, Action: ActionHandle, Content: "auto"},
		Rule{Name: "disks", TypePrefix: "urn:disk", MinLevel: alert.LevelMajor, Action: ActionInProgress},
	)

	tests := []struct {
		name    string
		alert   alert.Alert
		want    []string
		content any
	}{
		{
			name:    "first match wins",
			alert:   record("urn:disk:sda", alert.LevelFatal),
			want:    []string{"handle"},
			content: "auto",
		},
		{
			name:  "second rule",
			alert: record("urn:disk:sda", alert.LevelMajor),
			want:  []string{"in_progress"},
		},
		{
			name:  "already in target state",
			alert: record("urn:disk:sda", alert.LevelMajor, alert.StateInProgress),
		},
		{
			name:  "below level",
			alert: record("urn:disk:sda", alert.LevelMinor),
		},
		{
			name:  "other type",
			alert: record("urn:cpu", alert.LevelMajor),
		},
		{
			name:  "cleared",
			alert: record("urn:cpu", alert.LevelFatal, alert.StateCleared),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			response := new(recordedResponse)
			require.NoError(t, r.OnAlertChange(t.Context(), tt.alert, response))
			require.Equal(t, tt.want, response.calls)
			require.Equal(t, tt.content, response.content)
		})
	}
}

func TestOnce_AppliesOnce(t *testing.T) {
	t.Parallel()

	o := NewOnce(ActionUnhandle, "nope")
	require.False(t, o.Applied())

	response := new(recordedResponse)
	require.NoError(t, o.OnAlertChange(t.Context(), record("urn:a", alert.LevelInfo), response))
	require.NoError(t, o.OnAlertChange(t.Context(), record("urn:a", alert.LevelInfo), response))

	require.True(t, o.Applied())
	require.Equal(t, []string{"unhandle"}, response.calls)
	require.Equal(t, "nope", response.content)
}

// TestRuleResponder_Pipeline checks that feedback does not loop: the handled
// alert is requeued but the rule no longer matches.
func TestRuleResponder_Pipeline(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		p := provider.New()
		defer p.Close()

		m := memory.New("mem")

		_, err := p.AddManager(m)
		require.NoError(t, err)

		p.AddResponder(NewRuleResponder(Rule{Name: "all", Action: ActionHandle, Content: "done"}))

		time.Sleep(time.Second)

		raised, err := m.Raise(t.Context(), alert.Params{Type: "urn:x", Actionable: true})
		require.NoError(t, err)

		synctest.Wait()

		got, err := m.GetAlert(t.Context(), raised.ID())
		require.NoError(t, err)
		require.Len(t, got.Events(), 2)
		require.Equal(t, alert.StateHandled, alert.CurrentState(got))
		require.Equal(t, "done", got.Content())
		require.Zero(t, p.PendingResponses())

		o := NewOnce(ActionClear, nil)
		require.NoError(t, p.RespondTo(t.Context(), raised.ID().String()+":mem", o))
		require.True(t, o.Applied())

		_, err = m.GetAlert(t.Context(), raised.ID())
		require.ErrorIs(t, err, alert.ErrNotFound)
	})
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/provider"
)

// btreeDegree is the branching factor of the change index.
const btreeDegree = 16

// indexItem orders alerts by latest change time, then ID.
type indexItem struct {
	changed time.Time
	id      string
}

func lessItem(a, b indexItem) bool {
	if !a.changed.Equal(b.changed) {
		return a.changed.Before(b.changed)
	}

	return a.id < b.id
}

// Manager is an in-memory provider.Manager.
type Manager struct {
	// name identifies the manager in logs.
	name string
	// clock stamps change events.
	clock clock.Clock

	mu        sync.RWMutex
	alerts    map[string]*alert.Record
	index     *btree.BTreeG[indexItem]
	receivers []provider.NotifyReceiver
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for event times.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// New creates an empty manager named name.
func New(name string, opts ...Option) *Manager {
	m := &Manager{
		name:   name,
		clock:  clock.New(),
		alerts: make(map[string]*alert.Record),
		index:  btree.NewG[indexItem](btreeDegree, lessItem),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Name returns the configured manager name.
func (m *Manager) Name() string {
	return m.name
}

// SourceKey implements provider.Keyed, so identities stay stable across
// restarts.
func (m *Manager) SourceKey() string {
	return m.name
}

// Len returns the number of live alerts.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.alerts)
}

// Snapshot returns every live alert, oldest change first.
func (m *Manager) Snapshot() []alert.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]alert.Alert, 0, len(m.alerts))

	m.index.Ascend(func(item indexItem) bool {
		result = append(result, m.alerts[item.id])

		return true
	})

	return result
}

// Restore loads previously stored alerts, replacing any with the same ID.
// Receivers are not notified.
func (m *Manager) Restore(records ...*alert.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range records {
		id := record.ID().String()

		if current, ok := m.alerts[id]; ok {
			m.index.Delete(indexItem{changed: alert.LatestChangeTime(current), id: id})
		}

		m.alerts[id] = record
		m.index.ReplaceOrInsert(indexItem{changed: alert.LatestChangeTime(record), id: id})
	}
}

// Raise stores a new alert and tells receivers it is available.
func (m *Manager) Raise(ctx context.Context, params alert.Params) (alert.Alert, error) {
	id := uuid.New().String()
	record := alert.NewRecord(alert.StringID(id), params, m.clock.Now())

	m.mu.Lock()
	m.alerts[id] = record
	m.index.ReplaceOrInsert(indexItem{changed: alert.LatestChangeTime(record), id: id})
	receivers := append([]provider.NotifyReceiver(nil), m.receivers...)
	m.mu.Unlock()

	logger.InfoKV(ctx, "Alert raised",
		"manager", m.name,
		"alert_id", id,
		"type", params.Type,
		"level", params.Level.String())

	for _, r := range receivers {
		r.AlertsAvailable(ctx, 1)
	}

	return record, nil
}

// GetAlert implements provider.Source.
func (m *Manager) GetAlert(_ context.Context, id alert.ID) (alert.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.alerts[id.String()]
	if !ok {
		return nil, alert.ErrNotFound
	}

	return record, nil
}

// GetAlerts implements provider.Source. Alerts come out oldest change first.
func (m *Manager) GetAlerts(_ context.Context, since time.Time) ([]alert.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []alert.Alert

	m.index.AscendGreaterOrEqual(indexItem{changed: since}, func(item indexItem) bool {
		if item.changed.After(since) {
			result = append(result, m.alerts[item.id])
		}

		return true
	})

	return result, nil
}

// Resolve implements provider.Source. Local IDs are UUIDs.
func (m *Manager) Resolve(text string) (alert.ID, error) {
	parsed, err := uuid.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", alert.ErrInvalidIdentity, err)
	}

	return alert.StringID(parsed.String()), nil
}

// AsManager implements provider.Source.
func (m *Manager) AsManager() (provider.Manager, bool) {
	return m, true
}

// ChangeState implements provider.Manager.
func (m *Manager) ChangeState(
	ctx context.Context,
	target alert.Alert,
	state alert.State,
	content any,
) (alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.appendLocked(target.ID().String(), state, content)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Alert state changed", "manager", m.name, "alert_id", target.ID().String(), "state", state.String())

	return next, nil
}

// Remove implements provider.Manager. The returned alert carries a final
// cleared event.
func (m *Manager) Remove(ctx context.Context, id alert.ID) (alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	final, err := m.appendLocked(id.String(), alert.StateCleared, nil)
	if err != nil {
		return nil, err
	}

	delete(m.alerts, id.String())
	m.index.Delete(indexItem{changed: alert.LatestChangeTime(final), id: id.String()})

	logger.DebugKV(ctx, "Alert removed", "manager", m.name, "alert_id", id.String())

	return final, nil
}

// AddReceiver implements provider.Manager.
func (m *Manager) AddReceiver(r provider.NotifyReceiver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.receivers = append(m.receivers, r)
}

// appendLocked records a transition and keeps event times strictly increasing
// per alert, so the transition is always visible to "since" queries.
func (m *Manager) appendLocked(id string, state alert.State, content any) (*alert.Record, error) {
	current, ok := m.alerts[id]
	if !ok {
		return nil, alert.ErrNotFound
	}

	previous := alert.LatestChangeTime(current)

	changed := m.clock.Now()
	if !changed.After(previous) {
		changed = previous.Add(time.Nanosecond)
	}

	next := current.WithEvent(alert.ChangeEvent{
		State:      state,
		Content:    content,
		ChangeTime: changed,
	})

	m.index.Delete(indexItem{changed: previous, id: id})
	m.index.ReplaceOrInsert(indexItem{changed: changed, id: id})
	m.alerts[id] = next

	return next, nil
}

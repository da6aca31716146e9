package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/alert-hub/internal/domain/alert"
)

var errTestSource = errors.New("test source failure")

// stateChange records one ChangeState call made on a fakeManager.
type stateChange struct {
	id      string
	state   alert.State
	content any
}

// fakeManager is an in-memory Manager that records the calls it receives.
type fakeManager struct {
	mu        sync.Mutex
	key       string
	order     []string
	alerts    map[string]*alert.Record
	receivers []NotifyReceiver
	changes   []stateChange
	removed   []string
	listErr   error
	step      time.Duration
}

func newFakeManager(key string) *fakeManager {
	return &fakeManager{
		key:    key,
		alerts: make(map[string]*alert.Record),
		step:   time.Second,
	}
}

// SourceKey implements Keyed.
func (m *fakeManager) SourceKey() string { return m.key }

// add stores a new alert created at createdAt.
func (m *fakeManager) add(id string, actionable bool, createdAt time.Time) *alert.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := alert.NewRecord(alert.StringID(id), alert.Params{
		Type:        "https://alerts.test/" + m.key,
		Description: "alert " + id,
		Level:       alert.LevelWarning,
		Actionable:  actionable,
	}, createdAt)

	if _, exists := m.alerts[id]; !exists {
		m.order = append(m.order, id)
	}

	m.alerts[id] = r

	return r
}

// touch appends an event to id outside of any responder.
func (m *fakeManager) touch(id string, state alert.State, content any) *alert.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.appendLocked(id, state, content)
}

func (m *fakeManager) appendLocked(id string, state alert.State, content any) *alert.Record {
	current := m.alerts[id]
	next := current.WithEvent(alert.ChangeEvent{
		State:      state,
		Content:    content,
		ChangeTime: alert.LatestChangeTime(current).Add(m.step),
	})
	m.alerts[id] = next

	return next
}

// push notifies every receiver that count alerts are available.
func (m *fakeManager) push(ctx context.Context, count int) {
	m.mu.Lock()
	receivers := append([]NotifyReceiver(nil), m.receivers...)
	m.mu.Unlock()

	for _, r := range receivers {
		r.AlertsAvailable(ctx, count)
	}
}

func (m *fakeManager) recordedChanges() []stateChange {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]stateChange(nil), m.changes...)
}

// GetAlert implements Source.
func (m *fakeManager) GetAlert(_ context.Context, id alert.ID) (alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.alerts[id.String()]
	if !ok {
		return nil, alert.ErrNotFound
	}

	return r, nil
}

// GetAlerts implements Source.
func (m *fakeManager) GetAlerts(_ context.Context, since time.Time) ([]alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}

	var result []alert.Alert

	for _, id := range m.order {
		r, ok := m.alerts[id]
		if ok && alert.LatestChangeTime(r).After(since) {
			result = append(result, r)
		}
	}

	return result, nil
}

// Resolve implements Source.
func (m *fakeManager) Resolve(text string) (alert.ID, error) {
	if text == "" || strings.HasPrefix(text, "bad") {
		return nil, fmt.Errorf("%w: %q", alert.ErrInvalidIdentity, text)
	}

	return alert.StringID(text), nil
}

// AsManager implements Source.
func (m *fakeManager) AsManager() (Manager, bool) { return m, true }

// ChangeState implements Manager.
func (m *fakeManager) ChangeState(_ context.Context, target alert.Alert, state alert.State, content any) (alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := target.ID().String()
	m.changes = append(m.changes, stateChange{id: id, state: state, content: content})

	if _, ok := m.alerts[id]; !ok {
		return nil, alert.ErrNotFound
	}

	return m.appendLocked(id, state, content), nil
}

// Remove implements Manager.
func (m *fakeManager) Remove(_ context.Context, id alert.ID) (alert.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := id.String()
	if _, ok := m.alerts[key]; !ok {
		return nil, alert.ErrNotFound
	}

	final := m.appendLocked(key, alert.StateCleared, nil)
	delete(m.alerts, key)
	m.removed = append(m.removed, key)

	return final, nil
}

// AddReceiver implements Manager.
func (m *fakeManager) AddReceiver(r NotifyReceiver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.receivers = append(m.receivers, r)
}

// fakeSource is a read-only source wrapping a fakeManager's storage.
type fakeSource struct {
	*fakeManager
}

func newFakeSource(key string) *fakeSource {
	return &fakeSource{newFakeManager(key)}
}

// AsManager implements Source; plain sources are not managers.
func (s *fakeSource) AsManager() (Manager, bool) { return nil, false }

// recordingListener stores every alert it is notified about.
type recordingListener struct {
	mu     sync.Mutex
	alerts []alert.Alert
	err    error
}

func (l *recordingListener) OnAlertChange(_ context.Context, a alert.Alert) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.alerts = append(l.alerts, a)

	return l.err
}

func (l *recordingListener) received() []alert.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]alert.Alert(nil), l.alerts...)
}

// ids renders received alert IDs with their current state.
func (l *recordingListener) ids() []string {
	var result []string
	for _, a := range l.received() {
		result = append(result, a.ID().String()+"="+alert.CurrentState(a).String())
	}

	return result
}

// manualExecutor queues tasks until the test runs them.
type manualExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (e *manualExecutor) Go(task func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tasks = append(e.tasks, task)
}

func (e *manualExecutor) Close() {}

// runNext runs the oldest queued task and reports whether there was one.
func (e *manualExecutor) runNext() bool {
	e.mu.Lock()

	if len(e.tasks) == 0 {
		e.mu.Unlock()

		return false
	}

	task := e.tasks[0]
	e.tasks = e.tasks[1:]
	e.mu.Unlock()

	task()

	return true
}

// runAll runs tasks, including ones scheduled while running, until none remain.
func (e *manualExecutor) runAll() {
	for e.runNext() {
	}
}

func (e *manualExecutor) queued() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.tasks)
}

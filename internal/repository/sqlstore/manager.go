package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/provider"
)

// querier is the read surface shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Manager is a provider.Manager persisted in a SQL database. Several managers
// with different names may share one database.
type Manager struct {
	name    string
	db      *sql.DB
	dialect dialect
	clock   clock.Clock

	// writeMu serializes transitions so per-alert event times stay ordered.
	writeMu sync.Mutex

	receiversMu sync.RWMutex
	receivers   []provider.NotifyReceiver
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

// Open connects to the database, applies migrations and returns a manager
// named name.
func Open(ctx context.Context, driver, dsn, name string, opts ...Option) (*Manager, error) {
	d, err := newDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		// One connection avoids SQLITE_BUSY between concurrent writers.
		db.SetMaxOpenConns(1)

		if _, err = db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err = migrate(ctx, db, d); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("run migrations: %w", err)
	}

	m := &Manager{
		name:    name,
		db:      db,
		dialect: d,
		clock:   clock.New(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Close releases the database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Name returns the configured manager name.
func (m *Manager) Name() string {
	return m.name
}

// SourceKey implements provider.Keyed.
func (m *Manager) SourceKey() string {
	return m.name
}

// Raise stores a new alert and tells receivers it is available.
func (m *Manager) Raise(ctx context.Context, params alert.Params) (alert.Alert, error) {
	content, err := json.Marshal(params.Content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	id := uuid.New().String()

	m.writeMu.Lock()

	created := m.clock.Now()

	err = m.inTx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, m.dialect.rebind(
			`INSERT INTO alerts (id, source, type, description, level, actionable, latest_change)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`),
			id, m.name, params.Type, params.Description, params.Level.String(),
			boolToInt(params.Actionable), created.UnixNano(),
		)
		if execErr != nil {
			return fmt.Errorf("insert alert: %w", execErr)
		}

		return insertEvent(ctx, tx, m.dialect, id, 1, alert.StateCreated, content, created)
	})

	m.writeMu.Unlock()

	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Alert raised",
		"manager", m.name,
		"alert_id", id,
		"type", params.Type,
		"level", params.Level.String())

	record := alert.NewRecord(alert.StringID(id), params, time.Unix(0, created.UnixNano()).UTC())

	m.receiversMu.RLock()
	receivers := append([]provider.NotifyReceiver(nil), m.receivers...)
	m.receiversMu.RUnlock()

	for _, r := range receivers {
		r.AlertsAvailable(ctx, 1)
	}

	return record, nil
}

// GetAlert implements provider.Source.
func (m *Manager) GetAlert(ctx context.Context, id alert.ID) (alert.Alert, error) {
	return m.load(ctx, m.db, id.String())
}

// GetAlerts implements provider.Source. Alerts come out oldest change first.
func (m *Manager) GetAlerts(ctx context.Context, since time.Time) ([]alert.Alert, error) {
	var after int64
	if !since.IsZero() {
		after = since.UnixNano()
	}

	records, err := m.query(ctx, m.db,
		`WHERE a.source = ? AND a.latest_change > ?
		 ORDER BY a.latest_change, a.id, e.seq`,
		m.name, after)
	if err != nil {
		return nil, err
	}

	result := make([]alert.Alert, 0, len(records))
	for _, r := range records {
		result = append(result, r)
	}

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
	encoded, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	id := target.ID().String()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var next *alert.Record

	err = m.inTx(ctx, func(tx *sql.Tx) error {
		if appendErr := m.appendEvent(ctx, tx, id, state, encoded); appendErr != nil {
			return appendErr
		}

		var loadErr error

		next, loadErr = m.load(ctx, tx, id)

		return loadErr
	})
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Alert state changed", "manager", m.name, "alert_id", id, "state", state.String())

	return next, nil
}

// Remove implements provider.Manager. The returned alert carries a final
// cleared event; the rows are deleted.
func (m *Manager) Remove(ctx context.Context, id alert.ID) (alert.Alert, error) {
	key := id.String()

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var final *alert.Record

	err := m.inTx(ctx, func(tx *sql.Tx) error {
		if err := m.appendEvent(ctx, tx, key, alert.StateCleared, []byte("null")); err != nil {
			return err
		}

		var err error
		if final, err = m.load(ctx, tx, key); err != nil {
			return err
		}

		if _, err = tx.ExecContext(ctx, m.dialect.rebind("DELETE FROM alert_events WHERE alert_id = ?"), key); err != nil {
			return fmt.Errorf("delete events: %w", err)
		}

		if _, err = tx.ExecContext(ctx, m.dialect.rebind("DELETE FROM alerts WHERE id = ? AND source = ?"), key, m.name); err != nil {
			return fmt.Errorf("delete alert: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Alert removed", "manager", m.name, "alert_id", key)

	return final, nil
}

// AddReceiver implements provider.Manager.
func (m *Manager) AddReceiver(r provider.NotifyReceiver) {
	m.receiversMu.Lock()
	defer m.receiversMu.Unlock()

	m.receivers = append(m.receivers, r)
}

// appendEvent adds a transition at a time strictly after the previous one.
func (m *Manager) appendEvent(ctx context.Context, tx *sql.Tx, id string, state alert.State, content []byte) error {
	var (
		latest int64
		seq    int
	)

	row := tx.QueryRowContext(ctx, m.dialect.rebind(
		`SELECT a.latest_change, COALESCE(MAX(e.seq), 0)
		 FROM alerts a LEFT JOIN alert_events e ON e.alert_id = a.id
		 WHERE a.id = ? AND a.source = ?
		 GROUP BY a.latest_change`),
		id, m.name)

	err := row.Scan(&latest, &seq)
	if errors.Is(err, sql.ErrNoRows) {
		return alert.ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("read alert %s: %w", id, err)
	}

	changed := m.clock.Now().UnixNano()
	if changed <= latest {
		changed = latest + 1
	}

	if err = insertEvent(ctx, tx, m.dialect, id, seq+1, state, content, time.Unix(0, changed)); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, m.dialect.rebind("UPDATE alerts SET latest_change = ? WHERE id = ? AND source = ?"),
		changed, id, m.name)
	if err != nil {
		return fmt.Errorf("update alert %s: %w", id, err)
	}

	return nil
}

func insertEvent(
	ctx context.Context,
	tx *sql.Tx,
	d dialect,
	id string,
	seq int,
	state alert.State,
	content []byte,
	changed time.Time,
) error {
	_, err := tx.ExecContext(ctx, d.rebind(
		`INSERT INTO alert_events (alert_id, seq, state, content, change_time) VALUES (?, ?, ?, ?, ?)`),
		id, seq, state.String(), string(content), changed.UnixNano())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

// load reads one alert with its history.
func (m *Manager) load(ctx context.Context, q querier, id string) (*alert.Record, error) {
	records, err := m.query(ctx, q, "WHERE a.id = ? AND a.source = ? ORDER BY e.seq", id, m.name)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, alert.ErrNotFound
	}

	return records[0], nil
}

// query runs the joined alert and event select with the given tail and
// groups consecutive rows into records.
func (m *Manager) query(ctx context.Context, q querier, tail string, args ...any) ([]*alert.Record, error) {
	rows, err := q.QueryContext(ctx, m.dialect.rebind(
		`SELECT a.id, a.type, a.description, a.level, a.actionable, e.state, e.content, e.change_time
		 FROM alerts a JOIN alert_events e ON e.alert_id = a.id `+tail), args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}

	defer rows.Close()

	var (
		records []*alert.Record
		current *pendingRecord
	)

	for rows.Next() {
		var row scannedRow
		if err = rows.Scan(&row.id, &row.alertType, &row.description, &row.level, &row.actionable,
			&row.state, &row.content, &row.changeTime); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}

		if current == nil || current.id != row.id {
			if current != nil {
				records = append(records, current.record())
			}

			if current, err = row.start(); err != nil {
				return nil, err
			}
		}

		if err = current.add(row); err != nil {
			return nil, err
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}

	if current != nil {
		records = append(records, current.record())
	}

	return records, nil
}

func (m *Manager) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err = fn(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type scannedRow struct {
	id          string
	alertType   string
	description string
	level       string
	actionable  int
	state       string
	content     string
	changeTime  int64
}

// start begins a record from the alert columns of row.
func (row scannedRow) start() (*pendingRecord, error) {
	level, err := alert.ParseLevel(row.level)
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", row.id, err)
	}

	return &pendingRecord{
		id: row.id,
		params: alert.Params{
			Type:        row.alertType,
			Description: row.description,
			Level:       level,
			Actionable:  row.actionable != 0,
		},
	}, nil
}

// pendingRecord accumulates events of one alert while scanning.
type pendingRecord struct {
	id     string
	params alert.Params
	events []alert.ChangeEvent
}

func (p *pendingRecord) add(row scannedRow) error {
	state, err := alert.ParseState(row.state)
	if err != nil {
		return fmt.Errorf("alert %s: %w", row.id, err)
	}

	var content any
	if err = json.Unmarshal([]byte(row.content), &content); err != nil {
		return fmt.Errorf("alert %s: decode content: %w", row.id, err)
	}

	p.events = append(p.events, alert.ChangeEvent{
		State:      state,
		Content:    content,
		ChangeTime: time.Unix(0, row.changeTime).UTC(),
	})

	return nil
}

func (p *pendingRecord) record() *alert.Record {
	return alert.RestoreRecord(alert.StringID(p.id), p.params, p.events)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/alert-hub/internal/config"
	"github.com/oshokin/alert-hub/internal/domain/alert"
)

// Repository defines persistence operations for source snapshots.
type Repository interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// Snapshot is the stored form of one source.
type Snapshot struct {
	Source  string        `json:"source"`
	SavedAt time.Time     `json:"saved_at"`
	Alerts  []StoredAlert `json:"alerts"`
}

// StoredAlert is the stored form of one alert.
type StoredAlert struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Level       alert.Level   `json:"level"`
	Actionable  bool          `json:"actionable"`
	Events      []StoredEvent `json:"events"`
}

// StoredEvent is the stored form of one change event.
type StoredEvent struct {
	State      alert.State `json:"state"`
	Content    any         `json:"content,omitempty"`
	ChangeTime time.Time   `json:"change_time"`
}

// Capture builds a snapshot of alerts taken at savedAt.
func Capture(source string, alerts []alert.Alert, savedAt time.Time) *Snapshot {
	snapshot := &Snapshot{
		Source:  source,
		SavedAt: savedAt,
		Alerts:  make([]StoredAlert, 0, len(alerts)),
	}

	for _, a := range alerts {
		events := a.Events()
		stored := StoredAlert{
			ID:          a.ID().String(),
			Type:        a.Type(),
			Description: a.Description(),
			Level:       a.Level(),
			Actionable:  a.Actionable(),
			Events:      make([]StoredEvent, 0, len(events)),
		}

		for _, ev := range events {
			stored.Events = append(stored.Events, StoredEvent(ev))
		}

		snapshot.Alerts = append(snapshot.Alerts, stored)
	}

	return snapshot
}

// Records rebuilds the alerts held by the snapshot.
func (s *Snapshot) Records() []*alert.Record {
	records := make([]*alert.Record, 0, len(s.Alerts))

	for _, stored := range s.Alerts {
		events := make([]alert.ChangeEvent, 0, len(stored.Events))
		for _, ev := range stored.Events {
			events = append(events, alert.ChangeEvent(ev))
		}

		records = append(records, alert.RestoreRecord(alert.StringID(stored.ID), alert.Params{
			Type:        stored.Type,
			Description: stored.Description,
			Level:       stored.Level,
			Actionable:  stored.Actionable,
		}, events))
	}

	return records
}

// FileRepository persists snapshots to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the snapshot file.
	path string
	// mu protects concurrent access to the snapshot file.
	mu sync.Mutex
}

// ErrNotFound is returned when the snapshot file does not exist yet.
var ErrNotFound = errors.New("snapshot not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the snapshot file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the snapshot from disk.
func (r *FileRepository) Load(_ context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var snapshot Snapshot
	if err = json.Unmarshal(contents, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}

	return &snapshot, nil
}

// Save writes the snapshot next to the target and renames it into place, so
// a crash never leaves a truncated file behind.
func (r *FileRepository) Save(_ context.Context, snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}

	return nil
}

package alert

import (
	"slices"
	"time"
)

// ID identifies an alert. Source-local IDs are opaque to the aggregator; it
// only relies on their text form.
type ID interface {
	String() string
}

// StringID is a plain textual ID usable by any source.
type StringID string

func (id StringID) String() string {
	return string(id)
}

// ChangeEvent records one state transition of an alert.
type ChangeEvent struct {
	// State is the state the alert entered.
	State State
	// Content is an opaque payload attached to the transition.
	Content any
	// ChangeTime is when the transition happened.
	ChangeTime time.Time
}

// Alert is a reported condition with identity, severity and history.
// Implementations must not mutate values already handed out.
type Alert interface {
	ID() ID
	// Type is the classification URI.
	Type() string
	Description() string
	Level() Level
	// Actionable reports whether a responder may act on the alert.
	Actionable() bool
	// Events is the chronological history; the first event is the creation event.
	Events() []ChangeEvent
	// Content is the payload of the most recent event.
	Content() any
}

// LatestEvent returns the most recent event of a, or false if it has none.
func LatestEvent(a Alert) (ChangeEvent, bool) {
	events := a.Events()
	if len(events) == 0 {
		return ChangeEvent{}, false
	}

	return events[len(events)-1], true
}

// LatestChangeTime returns the change time of the most recent event of a.
func LatestChangeTime(a Alert) time.Time {
	ev, _ := LatestEvent(a)

	return ev.ChangeTime
}

// CurrentState returns the state of the most recent event of a.
func CurrentState(a Alert) State {
	ev, _ := LatestEvent(a)

	return ev.State
}

// Params describes a new alert raised by a producer.
type Params struct {
	// Type is the classification URI.
	Type string `json:"type" yaml:"type"`
	// Description is human-readable text.
	Description string `json:"description" yaml:"description"`
	// Level is the severity.
	Level Level `json:"level" yaml:"level"`
	// Actionable marks alerts responders may act on.
	Actionable bool `json:"actionable" yaml:"actionable"`
	// Content is the payload of the creation event.
	Content any `json:"content,omitempty" yaml:"content,omitempty"`
}

// Record is an immutable Alert value. Transitions produce new records that
// share nothing mutable with their predecessor.
type Record struct {
	id          ID
	alertType   string
	description string
	level       Level
	actionable  bool
	events      []ChangeEvent
}

// NewRecord creates a record with a single creation event at createdAt.
func NewRecord(id ID, params Params, createdAt time.Time) *Record {
	return &Record{
		id:          id,
		alertType:   params.Type,
		description: params.Description,
		level:       params.Level,
		actionable:  params.Actionable,
		events: []ChangeEvent{{
			State:      StateCreated,
			Content:    params.Content,
			ChangeTime: createdAt,
		}},
	}
}

// RestoreRecord rebuilds a record from stored fields and history.
// It is meant for sources that persist alerts.
func RestoreRecord(id ID, params Params, events []ChangeEvent) *Record {
	return &Record{
		id:          id,
		alertType:   params.Type,
		description: params.Description,
		level:       params.Level,
		actionable:  params.Actionable,
		events:      slices.Clone(events),
	}
}

// WithEvent returns a copy of r with ev appended to its history.
func (r *Record) WithEvent(ev ChangeEvent) *Record {
	next := *r
	next.events = append(slices.Clone(r.events), ev)

	return &next
}

// ID implements Alert.
func (r *Record) ID() ID { return r.id }

// Type implements Alert.
func (r *Record) Type() string { return r.alertType }

// Description implements Alert.
func (r *Record) Description() string { return r.description }

// Level implements Alert.
func (r *Record) Level() Level { return r.level }

// Actionable implements Alert.
func (r *Record) Actionable() bool { return r.actionable }

// Events implements Alert. The returned slice is a copy.
func (r *Record) Events() []ChangeEvent { return slices.Clone(r.events) }

// Content implements Alert.
func (r *Record) Content() any {
	if len(r.events) == 0 {
		return nil
	}

	return r.events[len(r.events)-1].Content
}

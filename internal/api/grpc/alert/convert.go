package alert

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alert-hub/internal/domain/alert"
)

// Event is the wire form of a change event.
type Event struct {
	State      string    `json:"state"`
	ChangeTime time.Time `json:"change_time"`
	Content    any       `json:"content,omitempty"`
}

// View is the wire form of an alert.
type View struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Level       string  `json:"level"`
	Actionable  bool    `json:"actionable"`
	State       string  `json:"state"`
	Content     any     `json:"content,omitempty"`
	Events      []Event `json:"events"`
}

// LatestChange returns the time of the most recent event.
func (v *View) LatestChange() time.Time {
	if len(v.Events) == 0 {
		return time.Time{}
	}

	return v.Events[len(v.Events)-1].ChangeTime
}

// RespondRequest is the body of RespondTo.
type RespondRequest struct {
	ID      string `json:"id"`
	Action  string `json:"action"`
	Content any    `json:"content,omitempty"`
}

// RaiseRequest is the body of RaiseAlert.
type RaiseRequest struct {
	Source string `json:"source"`
	domain.Params
}

// NewView converts a domain alert.
func NewView(a domain.Alert) *View {
	events := a.Events()

	view := &View{
		ID:          a.ID().String(),
		Type:        a.Type(),
		Description: a.Description(),
		Level:       a.Level().String(),
		Actionable:  a.Actionable(),
		State:       domain.CurrentState(a).String(),
		Content:     a.Content(),
		Events:      make([]Event, 0, len(events)),
	}

	for _, ev := range events {
		view.Events = append(view.Events, Event{
			State:      ev.State.String(),
			ChangeTime: ev.ChangeTime,
			Content:    ev.Content,
		})
	}

	return view
}

// ToStruct encodes v as a Struct through its JSON form, so any JSON-encodable
// content survives the trip.
func ToStruct(v any) (*structpb.Struct, error) {
	fields, err := toJSONMap(v)
	if err != nil {
		return nil, err
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}

	return s, nil
}

// FromStruct decodes s into out through its JSON form.
func FromStruct(s *structpb.Struct, out any) error {
	raw, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}

	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}

	return nil
}

// ToList encodes alerts as a list of Structs.
func ToList(alerts []domain.Alert) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(alerts))

	for _, a := range alerts {
		s, err := ToStruct(NewView(a))
		if err != nil {
			return nil, fmt.Errorf("alert %s: %w", a.ID(), err)
		}

		values = append(values, structpb.NewStructValue(s))
	}

	return &structpb.ListValue{Values: values}, nil
}

// FromList decodes a list produced by ToList.
func FromList(list *structpb.ListValue) ([]*View, error) {
	views := make([]*View, 0, len(list.GetValues()))

	for i, value := range list.GetValues() {
		s := value.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("list item %d is not an alert", i)
		}

		view := new(View)
		if err := FromStruct(s, view); err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}

		views = append(views, view)
	}

	return views, nil
}

func toJSONMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	var fields map[string]any
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return fields, nil
}

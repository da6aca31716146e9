package provider

import (
	"github.com/oshokin/alert-hub/internal/domain/alert"
)

// Decorator presents a source alert under its CompositeID. Decorators are
// created per retrieval and never stored.
type Decorator struct {
	id     CompositeID
	source alert.Alert
}

// NewDecorator wraps a source alert with its federated identity.
func NewDecorator(id CompositeID, a alert.Alert) *Decorator {
	return &Decorator{
		id:     id,
		source: a,
	}
}

// CompositeID returns the federated identity.
func (d *Decorator) CompositeID() CompositeID { return d.id }

// SourceAlert returns the wrapped source-native alert.
func (d *Decorator) SourceAlert() alert.Alert { return d.source }

// ID implements alert.Alert and returns the CompositeID.
func (d *Decorator) ID() alert.ID { return d.id }

// Type implements alert.Alert.
func (d *Decorator) Type() string { return d.source.Type() }

// Description implements alert.Alert.
func (d *Decorator) Description() string { return d.source.Description() }

// Level implements alert.Alert.
func (d *Decorator) Level() alert.Level { return d.source.Level() }

// Actionable implements alert.Alert.
func (d *Decorator) Actionable() bool { return d.source.Actionable() }

// Events implements alert.Alert.
func (d *Decorator) Events() []alert.ChangeEvent { return d.source.Events() }

// Content implements alert.Alert.
func (d *Decorator) Content() any { return d.source.Content() }

// decorate wraps a source alert reported by the source registered under key.
func decorate(key string, a alert.Alert) *Decorator {
	// Sources may hand back decorators of their own; never nest them.
	if inner, ok := a.(*Decorator); ok {
		a = inner.source
	}

	return NewDecorator(CompositeID{Local: a.ID(), Source: key}, a)
}

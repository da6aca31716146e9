package responder

import (
	"context"
	"sync/atomic"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/provider"
)

// Once applies a fixed action to the first alert it is given.
type Once struct {
	action  Action
	content any
	applied atomic.Bool
}

// NewOnce creates a single-use responder.
func NewOnce(action Action, content any) *Once {
	return &Once{
		action:  action,
		content: content,
	}
}

// OnAlertChange implements provider.Responder.
func (o *Once) OnAlertChange(ctx context.Context, _ alert.Alert, response provider.Response) error {
	if !o.applied.CompareAndSwap(false, true) {
		return nil
	}

	return o.action.Apply(ctx, response, o.content)
}

// Applied reports whether the action was attempted. It stays false when the
// alert was gone or not actionable.
func (o *Once) Applied() bool {
	return o.applied.Load()
}

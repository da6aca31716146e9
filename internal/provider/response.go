package provider

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
)

// responseChannel binds one responder decision to one alert and its manager.
type responseChannel struct {
	provider *Provider
	target   *Decorator
	manager  Manager
	fired    atomic.Bool
}

func newResponseChannel(p *Provider, target *Decorator, mgr Manager) *responseChannel {
	return &responseChannel{
		provider: p,
		target:   target,
		manager:  mgr,
	}
}

// InProgress implements Response.
func (c *responseChannel) InProgress(ctx context.Context, content any) error {
	return c.transition(ctx, alert.StateInProgress, content)
}

// Handle implements Response.
func (c *responseChannel) Handle(ctx context.Context, content any) error {
	return c.transition(ctx, alert.StateHandled, content)
}

// Unhandle implements Response.
func (c *responseChannel) Unhandle(ctx context.Context, content any) error {
	return c.transition(ctx, alert.StateUnhandled, content)
}

// Clear implements Response.
func (c *responseChannel) Clear(ctx context.Context) error {
	if err := c.fire(alert.StateCleared); err != nil {
		return err
	}

	result, err := c.manager.Remove(ctx, c.target.SourceAlert().ID())

	return c.changed(ctx, alert.StateCleared, result, err)
}

func (c *responseChannel) transition(ctx context.Context, state alert.State, content any) error {
	if err := c.fire(state); err != nil {
		return err
	}

	result, err := c.manager.ChangeState(ctx, c.target.SourceAlert(), state, content)

	return c.changed(ctx, state, result, err)
}

// fire claims the channel's single action.
func (c *responseChannel) fire(state alert.State) error {
	if c.fired.CompareAndSwap(false, true) {
		return nil
	}

	return fmt.Errorf("%w: alert %s already responded to, %s rejected",
		alert.ErrInvalidResponseState, c.target.CompositeID(), state)
}

// changed feeds the post-transition alert back into dispatch: listeners are
// notified and, when still actionable, the alert is queued for the next drain.
func (c *responseChannel) changed(ctx context.Context, state alert.State, result alert.Alert, err error) error {
	id := c.target.CompositeID()

	switch {
	case errors.Is(err, alert.ErrNotFound):
		return fmt.Errorf("%w: alert %s no longer exists: %w", alert.ErrInvalidResponseState, id, err)
	case err != nil:
		return fmt.Errorf("change alert %s to %s: %w", id, state, err)
	case result == nil:
		return nil
	}

	logger.InfoKV(ctx, "Alert state changed", "alert_id", id.String(), "state", state.String())

	var (
		decorated = decorate(id.Source, result)
		asyncCtx  = context.WithoutCancel(ctx)
	)

	c.provider.notifyListeners(asyncCtx, decorated)

	if decorated.Actionable() {
		c.provider.enqueueForResponse(asyncCtx, decorated.CompositeID(), c.manager)
	}

	return nil
}

package provider

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
)

// RespondTo runs r against the alert identified by value on the calling
// goroutine, bypassing the responder queue. It does nothing when the alert is
// gone, not actionable, or owned by a source that is not a manager. The
// responder's own error is returned.
func (p *Provider) RespondTo(ctx context.Context, value any, r Responder) error {
	id, err := p.Resolve(value)
	if err != nil {
		return err
	}

	mgr, ok := p.registry.manager(id.Source)
	if !ok {
		logger.DebugKV(ctx, "Alert source is not a manager, nothing to respond to", "alert_id", id.String())

		return nil
	}

	current, err := mgr.GetAlert(ctx, id.Local)

	switch {
	case errors.Is(err, alert.ErrNotFound), err == nil && current == nil:
		return nil
	case err != nil:
		return fmt.Errorf("get alert %s: %w", id, err)
	}

	if !current.Actionable() {
		return nil
	}

	return p.respond(ctx, NewDecorator(id, current), r, mgr)
}

// enqueueForResponse records id for the next responder drain and schedules one.
func (p *Provider) enqueueForResponse(ctx context.Context, id CompositeID, mgr Manager) {
	p.pending.put(id, mgr)

	p.responderExec.Go(func() {
		p.drainPending(ctx)
	})
}

// drainPending invokes every responder for every pending alert, refetching
// each alert so responders see its current state.
func (p *Provider) drainPending(ctx context.Context) {
	pending := p.pending.drain()
	if len(pending) == 0 {
		return
	}

	responders := p.observers.snapshotResponders()

	logger.DebugKV(ctx, "Invoking responders", "alerts", len(pending), "responders", len(responders))

	var errs error

	for _, entry := range pending {
		for _, r := range responders {
			current, err := entry.manager.GetAlert(ctx, entry.id.Local)
			if err != nil {
				if !errors.Is(err, alert.ErrNotFound) {
					errs = multierr.Append(errs, fmt.Errorf("refetch alert %s: %w", entry.id, err))
				}

				continue
			}

			if current == nil {
				continue
			}

			if err = p.respond(ctx, NewDecorator(entry.id, current), r, entry.manager); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("responder %T on alert %s: %w", r, entry.id, err))
			}
		}
	}

	p.report(ctx, "Alert responders failed", errs)
}

// respond hands target to r through a fresh response channel.
func (p *Provider) respond(ctx context.Context, target *Decorator, r Responder, mgr Manager) error {
	channel := newResponseChannel(p, target, mgr)

	return invoke(func() error {
		return r.OnAlertChange(ctx, target, channel)
	})
}

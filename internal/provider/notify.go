package provider

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
)

// AlertsAvailable implements NotifyReceiver. It schedules a pull of every
// source since the watermark and returns immediately.
func (p *Provider) AlertsAvailable(ctx context.Context, count int) {
	ctx = context.WithoutCancel(ctx)

	logger.InfoKV(ctx, "Alerts available", "count", count)

	p.listenerExec.Go(func() {
		p.pull(ctx)
	})
}

// pull runs one push batch: fetch, fan out to listeners, queue actionable
// manager alerts for responders, then advance the watermark. Listeners get
// the batch in merged order from this task, so one source's order is kept.
//
// When any source fails the watermark stays put: the next batch asks every
// source again from the same point, so the failed source loses nothing and
// healthy sources may deliver some alerts twice.
func (p *Provider) pull(ctx context.Context) {
	since := p.LastSeen()
	entries := p.registry.snapshot()

	batch, pullErr := collect(ctx, since, entries)
	if pullErr != nil {
		p.report(ctx, "Failed to pull alerts from some sources", pullErr)
	}

	var (
		listeners = p.observers.snapshotListeners()
		cursor    = since
		errs      error
	)

	for _, item := range batch {
		logger.DebugKV(ctx, "Alert received", "alert_id", item.alert.CompositeID().String())

		errs = multierr.Append(errs, deliver(ctx, listeners, item.alert))

		if mgr, ok := item.source.AsManager(); ok && item.alert.Actionable() {
			p.enqueueForResponse(ctx, item.alert.CompositeID(), mgr)
		}

		if changed := alert.LatestChangeTime(item.alert); changed.After(cursor) {
			cursor = changed
		}
	}

	p.report(ctx, "Alert listeners failed", errs)

	if pullErr != nil {
		logger.WarnKV(ctx, "Watermark kept until every source answers", "since", since)

		return
	}

	p.lastSeen.Store(&cursor)
}

// notifyListeners snapshots the listener set and delivers a to each listener,
// in order, as one task on the listener executor. Response feedback uses it.
func (p *Provider) notifyListeners(ctx context.Context, a alert.Alert) {
	listeners := p.observers.snapshotListeners()
	if len(listeners) == 0 {
		return
	}

	p.listenerExec.Go(func() {
		if err := deliver(ctx, listeners, a); err != nil {
			p.report(ctx, "Alert listeners failed", err)
		}
	})
}

// deliver calls every listener even when earlier ones fail.
func deliver(ctx context.Context, listeners []Listener, a alert.Alert) error {
	var errs error

	for _, l := range listeners {
		err := invoke(func() error {
			return l.OnAlertChange(ctx, a)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("listener %T on alert %s: %w", l, a.ID(), err))
		}
	}

	return errs
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
)

// collected is a decorated alert together with the source that reported it.
type collected struct {
	alert  *Decorator
	source Source
}

// GetAlert returns the alert identified by value (identity text or a
// CompositeID). Identity errors are returned as is; an alert whose source has
// no such alert, or whose source is gone, yields alert.ErrNotFound.
func (p *Provider) GetAlert(ctx context.Context, value any) (alert.Alert, error) {
	id, err := p.Resolve(value)
	if err != nil {
		return nil, err
	}

	src, ok := p.registry.source(id.Source)
	if !ok {
		return nil, fmt.Errorf("source %q: %w", id.Source, alert.ErrNotFound)
	}

	a, err := src.GetAlert(ctx, id.Local)
	if err != nil {
		return nil, fmt.Errorf("get alert %s: %w", id, err)
	}

	if a == nil {
		return nil, fmt.Errorf("get alert %s: %w", id, alert.ErrNotFound)
	}

	return NewDecorator(id, a), nil
}

// GetAlerts returns alerts that changed after since, concatenated per source
// in registration order. Order inside a source is the source's own; there is
// no global time ordering across sources. Sources that fail are skipped and
// their errors combined into the returned error next to the partial result.
func (p *Provider) GetAlerts(ctx context.Context, since time.Time) ([]alert.Alert, error) {
	batch, err := collect(ctx, since, p.registry.snapshot())

	result := make([]alert.Alert, 0, len(batch))
	for _, item := range batch {
		result = append(result, item.alert)
	}

	return result, err
}

// GetAlertsSince uses the latest event of the alert identified by value as
// the watermark for GetAlerts. An identity that resolves to no alert yields
// an empty result.
func (p *Provider) GetAlertsSince(ctx context.Context, value any) ([]alert.Alert, error) {
	since, err := p.GetAlert(ctx, value)

	switch {
	case errors.Is(err, alert.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	return p.GetAlerts(ctx, alert.LatestChangeTime(since))
}

// collect pulls alerts changed after since from every source in entries.
func collect(ctx context.Context, since time.Time, entries []sourceEntry) ([]collected, error) {
	var (
		result []collected
		errs   error
	)

	for _, entry := range entries {
		alerts, err := entry.source.GetAlerts(ctx, since)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("source %q: %w", entry.key, err))

			continue
		}

		logger.DebugKV(ctx, "Alerts pulled from source",
			"source_key", entry.key,
			"count", len(alerts),
			"since", since)

		for _, a := range alerts {
			if a == nil {
				continue
			}

			result = append(result, collected{
				alert:  decorate(entry.key, a),
				source: entry.source,
			})
		}
	}

	return result, errs
}

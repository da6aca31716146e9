package server

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/provider"
	"github.com/oshokin/alert-hub/internal/responder"
)

// raiser is a source that accepts new alerts.
type raiser interface {
	Raise(ctx context.Context, params alert.Params) (alert.Alert, error)
}

// service adapts the aggregating provider to the transport layer.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// provider aggregates every configured source.
	provider *provider.Provider
	// raisers maps source keys to sources that accept new alerts.
	raisers map[string]raiser
}

// newService creates a service over p.
func newService(p *provider.Provider) *service {
	return &service{
		provider: p,
		raisers:  make(map[string]raiser),
	}
}

// addRaiser exposes r under key for RaiseAlert.
func (s *service) addRaiser(key string, r raiser) {
	s.raisers[key] = r
}

// GetAlert returns one alert by composite ID.
func (s *service) GetAlert(ctx context.Context, id string) (alert.Alert, error) {
	return s.provider.GetAlert(ctx, id)
}

// ListAlerts returns alerts changed after since.
func (s *service) ListAlerts(ctx context.Context, since time.Time) ([]alert.Alert, error) {
	return s.provider.GetAlerts(ctx, since)
}

// ListAlertsSince returns alerts changed after the given alert.
func (s *service) ListAlertsSince(ctx context.Context, id string) ([]alert.Alert, error) {
	return s.provider.GetAlertsSince(ctx, id)
}

// RespondTo applies action to the alert right away, bypassing the responder
// queue. It reports false when there was nothing to respond to.
func (s *service) RespondTo(ctx context.Context, id string, action responder.Action, content any) (bool, error) {
	once := responder.NewOnce(action, content)

	if err := s.provider.RespondTo(ctx, id, once); err != nil {
		return once.Applied(), err
	}

	logger.InfoKV(ctx, "Responded to alert", "alert_id", id, "action", action.String(), "applied", once.Applied())

	return once.Applied(), nil
}

// RaiseAlert creates an alert in the source registered under key and returns
// its composite ID.
func (s *service) RaiseAlert(ctx context.Context, key string, params alert.Params) (string, error) {
	r, ok := s.raisers[key]
	if !ok {
		return "", fmt.Errorf("%w: %q does not accept new alerts", alert.ErrUnresolvedSource, key)
	}

	raised, err := r.Raise(ctx, params)
	if err != nil {
		return "", fmt.Errorf("raise alert in %s: %w", key, err)
	}

	return provider.Encode(provider.CompositeID{
		Local:  raised.ID(),
		Source: key,
	}), nil
}

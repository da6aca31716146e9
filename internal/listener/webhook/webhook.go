// Package webhook provides a listener that POSTs alert changes to an HTTP
// endpoint.
//
// Bodies are JSON. When a secret is configured each request carries an
// "X-Signature-256: sha256=<hex>" header with the HMAC-SHA256 of the body.
// Failed deliveries are retried with exponential backoff; 4xx answers other
// than 429 are not retried.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
)

const (
	// SignatureHeader carries the body signature.
	SignatureHeader = "X-Signature-256"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	userAgent         = "alert-hub/1"
)

// Config describes one webhook target.
type Config struct {
	// URL is the endpoint to POST to.
	URL string `yaml:"url"`
	// Secret signs request bodies when set.
	Secret string `yaml:"secret"`
	// Timeout bounds each attempt.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64 `yaml:"max_retries"`
	// MinLevel filters out less severe alerts.
	MinLevel alert.Level `yaml:"min_level"`
}

// Listener delivers alert changes to a webhook.
type Listener struct {
	cfg     Config
	client  *http.Client
	backoff func() backoff.BackOff
}

// Option configures a Listener.
type Option func(*Listener)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Listener) {
		l.client = c
	}
}

// WithBackOff replaces the retry policy factory.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(l *Listener) {
		l.backoff = factory
	}
}

// New creates a webhook listener.
func New(cfg Config, opts ...Option) *Listener {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	l := &Listener{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Payload is the request body.
type Payload struct {
	Event       string    `json:"event"`
	Timestamp   time.Time `json:"timestamp"`
	AlertID     string    `json:"alert_id"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Level       string    `json:"level"`
	State       string    `json:"state"`
	Actionable  bool      `json:"actionable"`
	ChangedAt   time.Time `json:"changed_at"`
	Content     any       `json:"content,omitempty"`
}

// OnAlertChange implements provider.Listener.
func (l *Listener) OnAlertChange(ctx context.Context, a alert.Alert) error {
	if a.Level() < l.cfg.MinLevel {
		return nil
	}

	body, err := json.Marshal(Payload{
		Event:       "alert_changed",
		Timestamp:   time.Now().UTC(),
		AlertID:     a.ID().String(),
		Type:        a.Type(),
		Description: a.Description(),
		Level:       a.Level().String(),
		State:       alert.CurrentState(a).String(),
		Actionable:  a.Actionable(),
		ChangedAt:   alert.LatestChangeTime(a),
		Content:     a.Content(),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(l.backoff(), l.cfg.MaxRetries), ctx)

	attempt := 0

	err = backoff.Retry(func() error {
		attempt++

		sendErr := l.send(ctx, body)
		if sendErr != nil {
			logger.DebugKV(ctx, "Webhook delivery failed",
				"url", l.cfg.URL,
				"attempt", attempt,
				"error", sendErr)
		}

		return sendErr
	}, policy)
	if err != nil {
		return fmt.Errorf("deliver alert %s to webhook: %w", a.ID(), err)
	}

	return nil
}

func (l *Listener) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create webhook request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if l.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(body, []byte(l.cfg.Secret)))
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}

	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
}

// Sign returns the hex HMAC-SHA256 of message under key.
func Sign(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)

	return hex.EncodeToString(mac.Sum(nil))
}

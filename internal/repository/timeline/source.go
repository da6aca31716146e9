package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/provider"
)

const (
	// TimelineKey is the sorted set of alert keys.
	TimelineKey = "alerts:timeline"
	// EventsChannel carries a message for every newly written alert.
	EventsChannel = "alert_events"

	keyPrefix = "alert:"
	// typePrefix is prepended to the lower-cased origin of each entry.
	typePrefix = "urn:timeline:"
)

// entry is the stored JSON shape.
type entry struct {
	ID        int       `json:"ID"`
	CreatedAt time.Time `json:"CreatedAt"`
	Source    string    `json:"Source"`
	Level     string    `json:"Level"`
	Title     string    `json:"Title"`
	Message   string    `json:"Message"`
}

// Source reads alerts from a Redis timeline.
type Source struct {
	name   string
	client redis.UniversalClient
}

// New wraps client as a source named name.
func New(name string, client redis.UniversalClient) *Source {
	return &Source{
		name:   name,
		client: client,
	}
}

// Dial connects to the Redis server at url ("redis://host:port/db").
func Dial(ctx context.Context, name, url string) (*Source, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return New(name, client), nil
}

// Close closes the Redis client.
func (s *Source) Close() error {
	return s.client.Close()
}

// SourceKey implements provider.Keyed.
func (s *Source) SourceKey() string {
	return s.name
}

// GetAlert implements provider.Source.
func (s *Source) GetAlert(ctx context.Context, id alert.ID) (alert.Alert, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, alert.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get alert %s: %w", id, err)
	}

	return decode(raw)
}

// GetAlerts implements provider.Source. Expired entries are skipped.
func (s *Source) GetAlerts(ctx context.Context, since time.Time) ([]alert.Alert, error) {
	minScore := "-inf"
	if !since.IsZero() {
		// Scores have second precision; the exact filter happens below.
		minScore = strconv.FormatInt(since.Unix(), 10)
	}

	keys, err := s.client.ZRangeByScore(ctx, TimelineKey, &redis.ZRangeBy{
		Min: minScore,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}

	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read timeline entries: %w", err)
	}

	result := make([]alert.Alert, 0, len(values))

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		a, decodeErr := decode(raw)
		if decodeErr != nil {
			logger.WarnKV(ctx, "Skipping malformed timeline entry", "key", keys[i], "error", decodeErr)

			continue
		}

		if alert.LatestChangeTime(a).After(since) {
			result = append(result, a)
		}
	}

	return result, nil
}

// Resolve implements provider.Source. Local IDs are positive integers.
func (s *Source) Resolve(text string) (alert.ID, error) {
	n, err := strconv.ParseUint(text, 10, 63)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("%w: timeline id %q", alert.ErrInvalidIdentity, text)
	}

	return alert.StringID(strconv.FormatUint(n, 10)), nil
}

// AsManager implements provider.Source. The timeline is read-only.
func (s *Source) AsManager() (provider.Manager, bool) {
	return nil, false
}

// Forward relays messages from EventsChannel to r until ctx is done.
func (s *Source) Forward(ctx context.Context, r provider.NotifyReceiver) error {
	sub := s.client.Subscribe(ctx, EventsChannel)
	defer sub.Close()

	messages := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-messages:
			if !ok {
				return nil
			}

			r.AlertsAvailable(ctx, 1)
		}
	}
}

// decode converts a stored entry into an alert.
func decode(raw string) (*alert.Record, error) {
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode timeline entry: %w", err)
	}

	level, err := alert.ParseLevel(e.Level)
	if err != nil {
		level = levelFromAlias(e.Level)
	}

	description := e.Title
	if e.Message != "" {
		if description != "" {
			description += ": "
		}

		description += e.Message
	}

	params := alert.Params{
		Type:        typePrefix + strings.ToLower(e.Source),
		Description: description,
		Level:       level,
		Content:     e.Message,
	}

	return alert.NewRecord(alert.StringID(strconv.Itoa(e.ID)), params, e.CreatedAt.UTC()), nil
}

// levelFromAlias maps severities used by other producers.
func levelFromAlias(s string) alert.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "high":
		return alert.LevelMajor
	case "warn", "medium":
		return alert.LevelWarning
	case "low":
		return alert.LevelMinor
	case "emergency", "panic":
		return alert.LevelFatal
	default:
		return alert.LevelInfo
	}
}

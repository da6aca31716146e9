package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/listener/webhook"
	"github.com/oshokin/alert-hub/internal/logger"
	"github.com/oshokin/alert-hub/internal/responder"
)

// Config holds the settings shared by the alert-hub binaries.
type Config struct {
	// ServerAddress is the gRPC address of the alert service.
	ServerAddress string `yaml:"server_addr"`
	// MetricsAddress is the HTTP address serving /metrics; empty disables it.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// LogLevel is the application log level.
	LogLevel string `yaml:"log_level,omitempty"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// ListenerPoolSize caps concurrent listener tasks; 0 means unbounded.
	ListenerPoolSize int `yaml:"listener_pool_size,omitempty"`
	// ResponderWorkers must be 1: responders always run on one serial worker.
	ResponderWorkers int `yaml:"responder_workers,omitempty"`
	// AuditLog configures the logging listener.
	AuditLog *AuditLog `yaml:"audit_log,omitempty"`
	// Sources lists the alert sources to aggregate.
	Sources []Source `yaml:"sources,omitempty"`
	// Responders lists automatic response rules.
	Responders []responder.Rule `yaml:"responders,omitempty"`
	// Webhooks lists HTTP endpoints notified of every change.
	Webhooks []webhook.Config `yaml:"webhooks,omitempty"`
}

// AuditLog configures the logging listener.
type AuditLog struct {
	// Level is the log level of alert change entries, independent of LogLevel.
	Level string `yaml:"level"`
	// EscalateAt is the alert level from which entries are logged as warnings.
	EscalateAt string `yaml:"escalate_at"`
}

// Escalation returns the parsed EscalateAt level, critical when unset.
func (a *AuditLog) Escalation() alert.Level {
	level, err := alert.ParseLevel(a.EscalateAt)
	if err != nil {
		return alert.LevelCritical
	}

	return level
}

// Source kinds.
const (
	SourceMemory   = "memory"
	SourceSQL      = "sql"
	SourceTimeline = "redis-timeline"
)

// Source describes one alert source.
type Source struct {
	// Name is the registry key of the source; it appears in composite IDs.
	Name string `yaml:"name"`
	// Kind is one of memory, sql or redis-timeline.
	Kind string `yaml:"kind"`
	// Driver is the SQL driver ("sqlite" or "postgres") for sql sources.
	Driver string `yaml:"driver,omitempty"`
	// DSN is the SQL data source name for sql sources.
	DSN string `yaml:"dsn,omitempty"`
	// URL is the Redis URL for redis-timeline sources.
	URL string `yaml:"url,omitempty"`
	// StateFile keeps a memory source across restarts when set.
	StateFile string `yaml:"state_file,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alert-hub.yaml"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errResponderWorkers is returned when more than one responder worker is requested.
	errResponderWorkers = errors.New("responder_workers must be 1")
)

// Load reads configuration from the provided path, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: DSNs and webhook secrets live here.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
//
//nolint:cyclop // One branch per setting.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.MetricsAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.MetricsAddress); err != nil {
			return fmt.Errorf("invalid metrics socket: %w", err)
		}
	}

	if settings.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
			return fmt.Errorf("unknown log level %q", settings.LogLevel)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.ListenerPoolSize < 0 {
		return fmt.Errorf("listener_pool_size must not be negative, got %d", settings.ListenerPoolSize)
	}

	switch settings.ResponderWorkers {
	case 0:
		settings.ResponderWorkers = 1
	case 1:
	default:
		return errResponderWorkers
	}

	if err := validateAuditLog(settings.AuditLog); err != nil {
		return err
	}

	if err := validateSources(settings.Sources); err != nil {
		return err
	}

	for _, rule := range settings.Responders {
		if err := rule.Validate(); err != nil {
			return err
		}
	}

	for i, hook := range settings.Webhooks {
		if _, err := url.ParseRequestURI(hook.URL); err != nil {
			return fmt.Errorf("webhook %d: invalid url: %w", i, err)
		}
	}

	return nil
}

func validateAuditLog(audit *AuditLog) error {
	if audit == nil {
		return nil
	}

	if audit.Level == "" {
		audit.Level = "info"
	}

	if _, ok := logger.ParseLogLevel(audit.Level); !ok {
		return fmt.Errorf("audit_log: unknown log level %q", audit.Level)
	}

	if audit.EscalateAt == "" {
		return nil
	}

	if _, err := alert.ParseLevel(audit.EscalateAt); err != nil {
		return fmt.Errorf("audit_log: %w", err)
	}

	return nil
}

func validateSources(sources []Source) error {
	seen := make(map[string]struct{}, len(sources))

	for i, src := range sources {
		if src.Name == "" || strings.Contains(src.Name, ":") {
			return fmt.Errorf("source %d: name must be non-empty and must not contain ':'", i)
		}

		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("source %q: duplicate name", src.Name)
		}

		seen[src.Name] = struct{}{}

		if src.StateFile != "" && src.Kind != SourceMemory {
			return fmt.Errorf("source %q: state_file applies to memory sources only", src.Name)
		}

		switch src.Kind {
		case SourceMemory:
		case SourceSQL:
			if src.Driver == "" || src.DSN == "" {
				return fmt.Errorf("source %q: driver and dsn are required", src.Name)
			}
		case SourceTimeline:
			if src.URL == "" {
				return fmt.Errorf("source %q: url is required", src.Name)
			}
		default:
			return fmt.Errorf("source %q: unknown kind %q", src.Name, src.Kind)
		}
	}

	return nil
}

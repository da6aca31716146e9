package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alert-hub/internal/domain/alert"
	"github.com/oshokin/alert-hub/internal/listener/webhook"
	"github.com/oshokin/alert-hub/internal/responder"
)

const sampleSettings = `
server_addr: 127.0.0.1:50051
metrics_addr: 127.0.0.1:9090
log_level: debug
timeout: 3s
listener_pool_size: 8
audit_log:
  level: info
  escalate_at: major
sources:
  - name: mem
    kind: memory
  - name: db
    kind: sql
    driver: sqlite
    dsn: /tmp/alerts.db
  - name: feed
    kind: redis-timeline
    url: redis://localhost:6379/0
responders:
  - name: fatal
    min_level: fatal
    action: handle
    content: auto
webhooks:
  - url: https://hooks.example.com/alerts
    secret: s3cret
    min_level: critical
`

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings *Config
		wantErr  bool
	}{
		{name: "nil", settings: nil, wantErr: true},
		{name: "missing socket", settings: new(Config), wantErr: true},
		{name: "bad socket", settings: &Config{ServerAddress: "bad:address"}, wantErr: true},
		{
			name:     "bad metrics socket",
			settings: &Config{ServerAddress: "127.0.0.1:0", MetricsAddress: "nope"},
			wantErr:  true,
		},
		{
			name:     "bad log level",
			settings: &Config{ServerAddress: "127.0.0.1:0", LogLevel: "loud"},
			wantErr:  true,
		},
		{
			name:     "negative pool",
			settings: &Config{ServerAddress: "127.0.0.1:0", ListenerPoolSize: -1},
			wantErr:  true,
		},
		{
			name:     "two responder workers",
			settings: &Config{ServerAddress: "127.0.0.1:0", ResponderWorkers: 2},
			wantErr:  true,
		},
		{
			name: "source name with colon",
			settings: &Config{ServerAddress: "127.0.0.1:0", Sources: []Source{
				{Name: "a:b", Kind: SourceMemory},
			}},
			wantErr: true,
		},
		{
			name: "duplicate source",
			settings: &Config{ServerAddress: "127.0.0.1:0", Sources: []Source{
				{Name: "a", Kind: SourceMemory},
				{Name: "a", Kind: SourceMemory},
			}},
			wantErr: true,
		},
		{
			name: "sql without dsn",
			settings: &Config{ServerAddress: "127.0.0.1:0", Sources: []Source{
				{Name: "a", Kind: SourceSQL, Driver: "sqlite"},
			}},
			wantErr: true,
		},
		{
			name: "state file on sql source",
			settings: &Config{ServerAddress: "127.0.0.1:0", Sources: []Source{
				{Name: "a", Kind: SourceSQL, Driver: "sqlite", DSN: "a.db", StateFile: "a.json"},
			}},
			wantErr: true,
		},
		{
			name: "unknown kind",
			settings: &Config{ServerAddress: "127.0.0.1:0", Sources: []Source{
				{Name: "a", Kind: "kafka"},
			}},
			wantErr: true,
		},
		{
			name: "rule without action",
			settings: &Config{ServerAddress: "127.0.0.1:0", Responders: []responder.Rule{
				{Name: "r"},
			}},
			wantErr: true,
		},
		{
			name: "bad webhook",
			settings: &Config{ServerAddress: "127.0.0.1:0", Webhooks: []webhook.Config{
				{URL: "not a url"},
			}},
			wantErr: true,
		},
		{
			name: "bad escalation",
			settings: &Config{ServerAddress: "127.0.0.1:0", AuditLog: &AuditLog{
				EscalateAt: "loud",
			}},
			wantErr: true,
		},
		{name: "minimal", settings: &Config{ServerAddress: "127.0.0.1:0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.settings)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, DefaultTimeout, tt.settings.Timeout)
			require.Equal(t, 1, tt.settings.ResponderWorkers)
		})
	}
}

// TestLoad_FullSettings parses every section.
func TestLoad_FullSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "alert-hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSettings), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:50051", cfg.ServerAddress)
	require.Equal(t, "127.0.0.1:9090", cfg.MetricsAddress)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 3*time.Second, cfg.Timeout)
	require.Equal(t, 8, cfg.ListenerPoolSize)
	require.Equal(t, 1, cfg.ResponderWorkers)
	require.Equal(t, alert.LevelMajor, cfg.AuditLog.Escalation())

	require.Equal(t, []Source{
		{Name: "mem", Kind: SourceMemory},
		{Name: "db", Kind: SourceSQL, Driver: "sqlite", DSN: "/tmp/alerts.db"},
		{Name: "feed", Kind: SourceTimeline, URL: "redis://localhost:6379/0"},
	}, cfg.Sources)

	require.Equal(t, []responder.Rule{{
		Name:     "fatal",
		MinLevel: alert.LevelFatal,
		Action:   responder.ActionHandle,
		Content:  "auto",
	}}, cfg.Responders)

	require.Len(t, cfg.Webhooks, 1)
	require.Equal(t, "s3cret", cfg.Webhooks[0].Secret)
	require.Equal(t, alert.LevelCritical, cfg.Webhooks[0].MinLevel)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		ServerAddress: "127.0.0.1:50051",
		Sources:       []Source{{Name: "mem", Kind: SourceMemory}},
		Responders: []responder.Rule{{
			Name:       "disks",
			TypePrefix: "urn:disk",
			MinLevel:   alert.LevelMajor,
			Action:     responder.ActionInProgress,
		}},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.ServerAddress, loaded.ServerAddress)
	require.Equal(t, settings.Sources, loaded.Sources)
	require.Equal(t, settings.Responders, loaded.Responders)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())

	require.Error(t, Save(path, nil))
}

// TestLoad_EnvOverrides applies ALERT_HUB_* variables, including ones from a .env file.
func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "alert-hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_addr: 127.0.0.1:1\n"), DefaultFilePermissions))

	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(EnvLogLevel+"=warn\n"), DefaultFilePermissions))

	t.Setenv(EnvServerAddress, "127.0.0.1:2")
	t.Setenv(EnvTimeout, "750ms")
	// Registered so the variable loaded from .env is removed after the test.
	t.Setenv(EnvLogLevel, "")
	require.NoError(t, os.Unsetenv(EnvLogLevel))

	require.NoError(t, LoadDotEnv(dotenv, filepath.Join(dir, "missing.env")))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:2", cfg.ServerAddress)
	require.Equal(t, 750*time.Millisecond, cfg.Timeout)
	require.Equal(t, "warn", cfg.LogLevel)

	t.Setenv(EnvTimeout, "soon")

	_, err = Load(path)
	require.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultTargetURL, cfg.Target.URL)
	assert.Equal(t, "label.checkbox_container", cfg.Target.LabelSelector)
	assert.Equal(t, "Available to book", cfg.Target.MarkerPhrase)
	assert.Equal(t, 60*time.Second, cfg.Poll.Interval)
	assert.Equal(t, EngineChromedp, cfg.Fetcher.Engine)
	assert.Equal(t, DefaultUserAgent, cfg.Fetcher.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.Fetcher.SettleDelay)
	assert.Equal(t, 45*time.Second, cfg.Fetcher.NavTimeout)
	assert.Equal(t, HistoryFile, cfg.History.Backend)
	assert.Equal(t, "booking_history.json", cfg.History.Path)
	assert.Equal(t, "Holland2Stay Rentals Numbers Changed", cfg.Notify.Subject)
	assert.Equal(t, "smtp.gmail.com", cfg.Notify.Email.SMTPHost)
	assert.Equal(t, 587, cfg.Notify.Email.SMTPPort)
	assert.Empty(t, cfg.Notify.Email.To)
	assert.False(t, cfg.Notify.Email.Enabled())
	assert.Equal(t, SnapshotNone, cfg.Snapshot.Backend)
	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, "app.log", cfg.Logging.File)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "availmon.yaml")
	configYAML := `
target:
  url: https://example.com/listing
  marker_phrase: Bookable now
poll:
  interval: 2m
fetcher:
  engine: rod
  settle_delay: 1500ms
history:
  backend: sqlite
  sqlite_path: /tmp/history.db
notify:
  subject: Listing changed
  email:
    from: bot@example.com
    password: secret
    to: ["a@example.com", "b@example.com"]
snapshot:
  backend: local
  dir: /tmp/snaps
server:
  enabled: true
  port: 9090
logging:
  development: false
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/listing", cfg.Target.URL)
	assert.Equal(t, "Bookable now", cfg.Target.MarkerPhrase)
	assert.Equal(t, 2*time.Minute, cfg.Poll.Interval)
	assert.Equal(t, EngineRod, cfg.Fetcher.Engine)
	assert.Equal(t, 1500*time.Millisecond, cfg.Fetcher.SettleDelay)
	assert.Equal(t, HistorySQLite, cfg.History.Backend)
	assert.Equal(t, "/tmp/history.db", cfg.History.SQLitePath)
	assert.Equal(t, "Listing changed", cfg.Notify.Subject)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.Email.To)
	assert.True(t, cfg.Notify.Email.Enabled())
	assert.Equal(t, SnapshotLocal, cfg.Snapshot.Backend)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AVAILMON_POLL_INTERVAL", "30s")
	t.Setenv("AVAILMON_FETCHER_ENGINE", "static")
	t.Setenv("AVAILMON_NOTIFY_WEBHOOK_URL", "https://hooks.example.com/x")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Poll.Interval)
	assert.Equal(t, EngineStatic, cfg.Fetcher.Engine)
	assert.Equal(t, "https://hooks.example.com/x", cfg.Notify.Webhook.URL)
}

func TestLoadGmailAliases(t *testing.T) {
	t.Setenv("GMAIL_FROM_EMAIL", "bot@gmail.com")
	t.Setenv("GMAIL_FROM_EMAIL_PASSWORD", "app-password")
	t.Setenv("GMAIL_TO_EMAIL", "a@example.com, b@example.com,")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "bot@gmail.com", cfg.Notify.Email.From)
	assert.Equal(t, "app-password", cfg.Notify.Email.Password)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.Email.To)
}

func TestLoadPrefixedWinsOverAlias(t *testing.T) {
	t.Setenv("GMAIL_FROM_EMAIL", "alias@gmail.com")
	t.Setenv("AVAILMON_NOTIFY_EMAIL_FROM", "prefixed@example.com")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "prefixed@example.com", cfg.Notify.Email.From)
}

func TestLoadEnvFile(t *testing.T) {
	const key = "AVAILMON_HISTORY_PATH"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(key+"=/data/history.json\n"), 0o600))

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "/data/history.json", cfg.History.Path)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "load env file")
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.ErrorContains(t, err, "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Target:   TargetConfig{URL: "https://example.com", MarkerPhrase: "Available to book"},
		Poll:     PollConfig{Interval: time.Minute},
		Fetcher:  FetcherConfig{Engine: EngineChromedp, NavTimeout: time.Second},
		History:  HistoryConfig{Backend: HistoryFile, Path: "h.json"},
		Snapshot: SnapshotConfig{Backend: SnapshotNone},
		Server:   ServerConfig{Port: 8080},
		Logging:  LoggingConfig{Level: "info"},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative url", func(c *Config) { c.Target.URL = "/residences" }, "target.url"},
		{"ftp url", func(c *Config) { c.Target.URL = "ftp://example.com" }, "target.url"},
		{"empty marker", func(c *Config) { c.Target.MarkerPhrase = " " }, "target.marker_phrase"},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }, "poll.interval"},
		{"unknown engine", func(c *Config) { c.Fetcher.Engine = "selenium" }, "fetcher.engine"},
		{"negative settle", func(c *Config) { c.Fetcher.SettleDelay = -time.Second }, "fetcher.settle_delay"},
		{"zero nav timeout", func(c *Config) { c.Fetcher.NavTimeout = 0 }, "fetcher.nav_timeout"},
		{"file without path", func(c *Config) { c.History.Path = "" }, "history.path"},
		{"sqlite without path", func(c *Config) { c.History.Backend = HistorySQLite }, "history.sqlite_path"},
		{"postgres without dsn", func(c *Config) { c.History.Backend = HistoryPostgres }, "history.postgres_dsn"},
		{"unknown history", func(c *Config) { c.History.Backend = "redis" }, "history.backend"},
		{"local without dir", func(c *Config) { c.Snapshot.Backend = SnapshotLocal }, "snapshot.dir"},
		{"gcs without bucket", func(c *Config) { c.Snapshot.Backend = SnapshotGCS }, "snapshot.gcs_bucket"},
		{"unknown snapshot", func(c *Config) { c.Snapshot.Backend = "s3" }, "snapshot.backend"},
		{"email without port", func(c *Config) { c.Notify.Email.From = "x@example.com" }, "notify.email.smtp_port"},
		{"topic without project", func(c *Config) { c.Notify.PubSub.Topic = "changes" }, "notify.pubsub.project_id"},
		{"bad server port", func(c *Config) { c.Server = ServerConfig{Enabled: true, Port: 70000} }, "server.port"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"a@x", "b@x", "c@x"},
		splitList([]string{"a@x, b@x", " ", "c@x,"}),
	)
	assert.Empty(t, splitList(nil))
}

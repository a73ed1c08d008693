// Package config loads availmon settings from an optional config file, a .env
// file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is prepended to every environment variable viper consults.
const EnvPrefix = "AVAILMON"

// DefaultTargetURL is the Holland2Stay Leiden residences listing.
const DefaultTargetURL = "https://www.holland2stay.com/residences?page=1&filter=Leiden&city%5Bfilter%5D=Leiden%2C6293"

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher engines.
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
	EngineStatic   = "static"
)

// History backends.
const (
	HistoryFile     = "file"
	HistorySQLite   = "sqlite"
	HistoryPostgres = "postgres"
)

// Snapshot backends.
const (
	SnapshotNone  = "none"
	SnapshotLocal = "local"
	SnapshotGCS   = "gcs"
)

// Config is the fully resolved application configuration.
type Config struct {
	Target   TargetConfig   `mapstructure:"target"`
	Poll     PollConfig     `mapstructure:"poll"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	History  HistoryConfig  `mapstructure:"history"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TargetConfig names the monitored page and how to read it.
type TargetConfig struct {
	URL           string `mapstructure:"url"`
	LabelSelector string `mapstructure:"label_selector"`
	MarkerPhrase  string `mapstructure:"marker_phrase"`
}

// PollConfig controls the loop cadence.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// FetcherConfig selects and tunes the page renderer.
type FetcherConfig struct {
	Engine        string        `mapstructure:"engine"`
	UserAgent     string        `mapstructure:"user_agent"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	NavTimeout    time.Duration `mapstructure:"nav_timeout"`
	WindowWidth   int           `mapstructure:"window_width"`
	WindowHeight  int           `mapstructure:"window_height"`
	BrowserPath   string        `mapstructure:"browser_path"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// HistoryConfig selects the observation log backend.
type HistoryConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
}

// NotifyConfig holds every notification channel.
type NotifyConfig struct {
	Subject string        `mapstructure:"subject"`
	Email   EmailConfig   `mapstructure:"email"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
}

// EmailConfig is the SMTP sender account and recipient list.
type EmailConfig struct {
	From     string   `mapstructure:"from"`
	Password string   `mapstructure:"password"`
	To       []string `mapstructure:"to"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
}

// Enabled reports whether any email setting was provided.
func (e EmailConfig) Enabled() bool {
	return e.From != "" || e.Password != "" || len(e.To) > 0
}

// WebhookConfig is an optional JSON POST endpoint.
type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PubSubConfig is an optional Cloud Pub/Sub topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// SnapshotConfig controls where unreadable pages are archived.
type SnapshotConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ServerConfig controls the status API.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	Level       string `mapstructure:"level"`
}

// Load reads configuration. envFile is loaded into the process environment
// first without overriding variables that are already set; when empty, a
// .env in the working directory is used if present. path is an optional
// YAML/TOML/JSON config file.
func Load(path, envFile string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Notify.Email.To = splitList(cfg.Notify.Email.To)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// bindAliases keeps the Gmail variable names working next to the prefixed ones.
func bindAliases(v *viper.Viper) error {
	aliases := map[string]string{
		"notify.email.from":     "GMAIL_FROM_EMAIL",
		"notify.email.password": "GMAIL_FROM_EMAIL_PASSWORD",
		"notify.email.to":       "GMAIL_TO_EMAIL",
	}
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.url", DefaultTargetURL)
	v.SetDefault("target.label_selector", "label.checkbox_container")
	v.SetDefault("target.marker_phrase", "Available to book")
	v.SetDefault("poll.interval", 60*time.Second)
	v.SetDefault("fetcher.engine", EngineChromedp)
	v.SetDefault("fetcher.user_agent", DefaultUserAgent)
	v.SetDefault("fetcher.settle_delay", 5*time.Second)
	v.SetDefault("fetcher.nav_timeout", 45*time.Second)
	v.SetDefault("fetcher.window_width", 1920)
	v.SetDefault("fetcher.window_height", 1080)
	v.SetDefault("fetcher.browser_path", "")
	v.SetDefault("fetcher.respect_robots", false)
	v.SetDefault("history.backend", HistoryFile)
	v.SetDefault("history.path", "booking_history.json")
	v.SetDefault("history.sqlite_path", "availmon.db")
	v.SetDefault("history.postgres_dsn", "")
	v.SetDefault("history.postgres_table", "availability_observations")
	v.SetDefault("notify.subject", "Holland2Stay Rentals Numbers Changed")
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.email.password", "")
	v.SetDefault("notify.email.to", []string{})
	v.SetDefault("notify.email.smtp_host", "smtp.gmail.com")
	v.SetDefault("notify.email.smtp_port", 587)
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("notify.webhook.timeout", 10*time.Second)
	v.SetDefault("notify.pubsub.project_id", "")
	v.SetDefault("notify.pubsub.topic", "")
	v.SetDefault("snapshot.backend", SnapshotNone)
	v.SetDefault("snapshot.dir", "snapshots")
	v.SetDefault("snapshot.gcs_bucket", "")
	v.SetDefault("snapshot.prefix", "snapshots")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "app.log")
	v.SetDefault("logging.level", "info")
}

// Validate rejects settings the program cannot start with.
func (c Config) Validate() error {
	u, err := url.Parse(c.Target.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("target.url must be an absolute http(s) URL, got %q", c.Target.URL)
	}
	if strings.TrimSpace(c.Target.MarkerPhrase) == "" {
		return fmt.Errorf("target.marker_phrase must not be empty")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be > 0")
	}

	switch c.Fetcher.Engine {
	case EngineChromedp, EngineRod, EngineStatic:
	default:
		return fmt.Errorf("fetcher.engine must be one of %s, %s, %s; got %q",
			EngineChromedp, EngineRod, EngineStatic, c.Fetcher.Engine)
	}
	if c.Fetcher.SettleDelay < 0 {
		return fmt.Errorf("fetcher.settle_delay must be >= 0")
	}
	if c.Fetcher.NavTimeout <= 0 {
		return fmt.Errorf("fetcher.nav_timeout must be > 0")
	}

	switch c.History.Backend {
	case HistoryFile:
		if c.History.Path == "" {
			return fmt.Errorf("history.path is required for the file backend")
		}
	case HistorySQLite:
		if c.History.SQLitePath == "" {
			return fmt.Errorf("history.sqlite_path is required for the sqlite backend")
		}
	case HistoryPostgres:
		if c.History.PostgresDSN == "" {
			return fmt.Errorf("history.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("history.backend must be one of %s, %s, %s; got %q",
			HistoryFile, HistorySQLite, HistoryPostgres, c.History.Backend)
	}

	switch c.Snapshot.Backend {
	case SnapshotNone, "":
	case SnapshotLocal:
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir is required for the local backend")
		}
	case SnapshotGCS:
		if c.Snapshot.GCSBucket == "" {
			return fmt.Errorf("snapshot.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("snapshot.backend must be one of %s, %s, %s; got %q",
			SnapshotNone, SnapshotLocal, SnapshotGCS, c.Snapshot.Backend)
	}

	if c.Notify.Email.Enabled() && c.Notify.Email.SMTPPort <= 0 {
		return fmt.Errorf("notify.email.smtp_port must be > 0")
	}
	if c.Notify.PubSub.Topic != "" && c.Notify.PubSub.ProjectID == "" {
		return fmt.Errorf("notify.pubsub.project_id must be set when notify.pubsub.topic is set")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

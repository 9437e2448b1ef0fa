package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"text/template"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Scrobble policies recognized by [TrackerConfig].
const (
	PolicyTicks    = "ticks"
	PolicyFraction = "fraction"
)

// Webhook event names recognized by [WebhookConfig].
const (
	EventNowPlaying = "now_playing"
	EventScrobble   = "scrobble"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Session  SessionConfig  `toml:"session"`
	Tracker  TrackerConfig  `toml:"tracker"`
	Tasks    TasksConfig    `toml:"tasks"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Webhook  WebhookConfig  `toml:"webhook"`
	Overlay  OverlayConfig  `toml:"overlay"`
	Logging  LoggingConfig  `toml:"logging"`
}

// SessionConfig locates the session log and sets the scan cadence.
type SessionConfig struct {
	Path     string        `toml:"path"`
	Interval time.Duration `toml:"interval"`
}

// TrackerConfig holds the now-playing and scrobble thresholds.
type TrackerConfig struct {
	NowPlayingTicks  int     `toml:"now_playing_ticks"`
	ScrobblePolicy   string  `toml:"scrobble_policy"`
	ScrobbleTicks    int     `toml:"scrobble_ticks"`
	ScrobbleFraction float64 `toml:"scrobble_fraction"`
}

// TasksConfig controls how observer side effects are executed.
type TasksConfig struct {
	Isolate bool `toml:"isolate"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains status server settings.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WebhookConfig configures the outbound event notifier. An empty URL disables it.
type WebhookConfig struct {
	URL          string        `toml:"url"`
	Events       []string      `toml:"events"`
	RateLimit    float64       `toml:"rate_limit"`
	RetryMax     int           `toml:"retry_max"`
	Timeout      time.Duration `toml:"timeout"`
	ClientID     string        `toml:"client_id"`
	ClientSecret string        `toml:"client_secret"`
	TokenURL     string        `toml:"token_url"`
}

// Wants reports whether event is enabled for delivery.
func (w WebhookConfig) Wants(event string) bool {
	return w.URL != "" && slices.Contains(w.Events, event)
}

// OverlayConfig configures the now-playing text file. An empty Path disables it.
type OverlayConfig struct {
	Path   string `toml:"path"`
	Format string `toml:"format"`
}

// LoggingConfig sets the log level and an optional log file.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the settings that would make the tick loop misbehave.
//
// All problems are reported together, each wrapping [ErrInvalidConfig].
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Session.Path == "" {
		invalid("session.path is required")
	}
	if c.Session.Interval <= 0 {
		invalid("session.interval must be positive, got %s", c.Session.Interval)
	}
	if err := c.Tracker.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		invalid("server.port out of range: %d", c.Server.Port)
	}
	for _, event := range c.Webhook.Events {
		if event != EventNowPlaying && event != EventScrobble {
			invalid("webhook.events: unknown event %q", event)
		}
	}
	if c.Webhook.URL != "" && c.Webhook.RateLimit <= 0 {
		invalid("webhook.rate_limit must be positive when webhook.url is set")
	}
	if c.Overlay.Path != "" {
		if _, err := template.New("overlay").Parse(c.Overlay.Format); err != nil {
			invalid("overlay.format: %v", err)
		}
	}

	return errors.Join(errs...)
}

// Validate checks the hysteresis thresholds. Each problem wraps [ErrInvalidConfig].
func (t TrackerConfig) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if t.NowPlayingTicks < 1 {
		invalid("tracker.now_playing_ticks must be at least 1, got %d", t.NowPlayingTicks)
	}
	if t.ScrobbleTicks < 1 {
		invalid("tracker.scrobble_ticks must be at least 1, got %d", t.ScrobbleTicks)
	}
	switch t.ScrobblePolicy {
	case PolicyTicks:
	case PolicyFraction:
		if t.ScrobbleFraction <= 0 || t.ScrobbleFraction > 1 {
			invalid("tracker.scrobble_fraction must be in (0, 1], got %v", t.ScrobbleFraction)
		}
	default:
		invalid("tracker.scrobble_policy must be %q or %q, got %q", PolicyTicks, PolicyFraction, t.ScrobblePolicy)
	}

	return errors.Join(errs...)
}

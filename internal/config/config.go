package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all agent configuration
type Config struct {
	// Remote collection endpoint
	API APIConfig

	// Sampling cadence and idle detection
	Tracker TrackerConfig

	// Screenshot compression
	Screenshot ScreenshotConfig

	// Local delivery journal
	Journal JournalConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Logging configuration
	Log LogConfig

	// Local status API configuration
	Web WebConfig
}

// APIConfig holds the collection endpoint credentials
type APIConfig struct {
	Key string // Per-employee API key sent as x-api-key
	URL string // Base URL, endpoints are appended to it
}

// TrackerConfig holds sampling behavior configuration
type TrackerConfig struct {
	ActivityInterval   time.Duration // How often an activity record is sent
	ScreenshotInterval time.Duration // How often a screenshot is uploaded
	IdleThreshold      time.Duration // Time without input before status turns idle
	MinInterval        time.Duration // Lower bound for both intervals
}

// ScreenshotConfig holds capture settings
type ScreenshotConfig struct {
	Quality int // JPEG quality, 0-100
}

// JournalConfig holds delivery journal configuration
type JournalConfig struct {
	Enabled   bool
	Path      string        // Path to SQLite database file
	Retention time.Duration // Rows older than this are purged at startup
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string // logrus level name
	File  string // Empty means stdout only
}

// WebConfig holds local status server configuration
type WebConfig struct {
	Enabled bool
	Host    string // Host to bind web server to
	Port    int    // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			ActivityInterval:   30 * time.Second,
			ScreenshotInterval: 600 * time.Second,
			IdleThreshold:      300 * time.Second,
			MinInterval:        1 * time.Second,
		},
		Screenshot: ScreenshotConfig{
			Quality: 60,
		},
		Journal: JournalConfig{
			Enabled:   true,
			Path:      "", // Empty means use default ~/.config/workagent/workagent.db
			Retention: 30 * 24 * time.Hour,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("%s/workagent-%d.pid", os.TempDir(), os.Getuid()),
		},
		Log: LogConfig{
			Level: "info",
		},
		Web: WebConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    17345,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return fmt.Errorf("api_key is required")
	}

	if c.API.URL == "" {
		return fmt.Errorf("api_url is required")
	}

	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("api_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("api_url must include a host")
	}

	if c.Tracker.ActivityInterval < c.Tracker.MinInterval {
		return fmt.Errorf("activity interval (%v) cannot be less than minimum (%v)",
			c.Tracker.ActivityInterval, c.Tracker.MinInterval)
	}

	if c.Tracker.ActivityInterval%time.Second != 0 {
		return fmt.Errorf("activity interval (%v) must be a whole number of seconds", c.Tracker.ActivityInterval)
	}

	if c.Tracker.ScreenshotInterval < c.Tracker.MinInterval {
		return fmt.Errorf("screenshot interval (%v) cannot be less than minimum (%v)",
			c.Tracker.ScreenshotInterval, c.Tracker.MinInterval)
	}

	if c.Tracker.IdleThreshold < 0 {
		return fmt.Errorf("idle threshold cannot be negative")
	}

	if c.Screenshot.Quality < 0 || c.Screenshot.Quality > 100 {
		return fmt.Errorf("screenshot quality must be between 0 and 100, got %d", c.Screenshot.Quality)
	}

	if c.Journal.Retention < 0 {
		return fmt.Errorf("journal retention cannot be negative")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.Web.Enabled {
		if c.Web.Port < 1 || c.Web.Port > 65535 {
			return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
		}
		if c.Web.Host == "" {
			return fmt.Errorf("web host cannot be empty")
		}
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetActivityInterval sets the activity interval with validation
func (c *Config) SetActivityInterval(interval time.Duration) error {
	if interval < c.Tracker.MinInterval {
		return fmt.Errorf("activity interval cannot be less than %v", c.Tracker.MinInterval)
	}
	// duration_seconds is reported in whole seconds
	if interval%time.Second != 0 {
		return fmt.Errorf("activity interval must be a whole number of seconds, got %v", interval)
	}
	c.Tracker.ActivityInterval = interval
	return nil
}

// SetScreenshotInterval sets the screenshot interval with validation
func (c *Config) SetScreenshotInterval(interval time.Duration) error {
	if interval < c.Tracker.MinInterval {
		return fmt.Errorf("screenshot interval cannot be less than %v", c.Tracker.MinInterval)
	}
	c.Tracker.ScreenshotInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// APIBaseURL returns the API URL without a trailing slash
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.API.URL, "/")
}

// GetActivityIntervalSeconds returns the activity interval in seconds
func (c *Config) GetActivityIntervalSeconds() int64 {
	return int64(c.Tracker.ActivityInterval.Seconds())
}

// GetIdleThresholdSeconds returns the idle threshold in seconds
func (c *Config) GetIdleThresholdSeconds() int64 {
	return int64(c.Tracker.IdleThreshold.Seconds())
}

// MaskedAPIKey returns the API key with all but the last four characters hidden
func (c *Config) MaskedAPIKey() string {
	key := c.API.Key
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  API:
    URL: %s
    Key: %s
  Tracker:
    Activity Interval: %v
    Screenshot Interval: %v
    Idle Threshold: %v
  Screenshot:
    Quality: %d
  Journal:
    Enabled: %v
    Path: %s
    Retention: %v
  Daemon:
    PID File: %s
  Web:
    Enabled: %v
    Address: %s:%d`,
		c.APIBaseURL(),
		c.MaskedAPIKey(),
		c.Tracker.ActivityInterval,
		c.Tracker.ScreenshotInterval,
		c.Tracker.IdleThreshold,
		c.Screenshot.Quality,
		c.Journal.Enabled,
		c.Journal.Path,
		c.Journal.Retention,
		c.Daemon.PIDFile,
		c.Web.Enabled,
		c.Web.Host,
		c.Web.Port,
	)
}

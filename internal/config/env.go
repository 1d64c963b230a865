package config

import (
	"fmt"
	"os"
	"strconv"
)

// LoadFromEnv loads configuration from environment variables.
// Environment variables override file and default values.
func LoadFromEnv(cfg *Config) error {
	// API configuration
	if key := os.Getenv("WORKAGENT_API_KEY"); key != "" {
		cfg.API.Key = key
	}

	if apiURL := os.Getenv("WORKAGENT_API_URL"); apiURL != "" {
		cfg.API.URL = apiURL
	}

	// Tracker configuration
	if err := envSeconds("WORKAGENT_ACTIVITY_INTERVAL", func(n int) { cfg.Tracker.ActivityInterval = seconds(n) }); err != nil {
		return err
	}

	if err := envSeconds("WORKAGENT_SCREENSHOT_INTERVAL", func(n int) { cfg.Tracker.ScreenshotInterval = seconds(n) }); err != nil {
		return err
	}

	if err := envSeconds("WORKAGENT_IDLE_THRESHOLD", func(n int) { cfg.Tracker.IdleThreshold = seconds(n) }); err != nil {
		return err
	}

	if err := envInt("WORKAGENT_SCREENSHOT_QUALITY", func(n int) { cfg.Screenshot.Quality = n }); err != nil {
		return err
	}

	// Journal configuration
	if err := envBool("WORKAGENT_JOURNAL_ENABLED", func(b bool) { cfg.Journal.Enabled = b }); err != nil {
		return err
	}

	if path := os.Getenv("WORKAGENT_JOURNAL_PATH"); path != "" {
		cfg.Journal.Path = path
	}

	if err := envInt("WORKAGENT_JOURNAL_RETENTION", func(n int) { cfg.Journal.Retention = days(n) }); err != nil {
		return err
	}

	// Daemon configuration
	if pidFile := os.Getenv("WORKAGENT_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	// Logging configuration
	if level := os.Getenv("WORKAGENT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if logFile := os.Getenv("WORKAGENT_LOG_FILE"); logFile != "" {
		cfg.Log.File = logFile
	}

	// Web configuration
	if err := envBool("WORKAGENT_WEB_ENABLED", func(b bool) { cfg.Web.Enabled = b }); err != nil {
		return err
	}

	if webHost := os.Getenv("WORKAGENT_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if err := envInt("WORKAGENT_WEB_PORT", func(n int) { cfg.Web.Port = n }); err != nil {
		return err
	}

	return nil
}

// New creates a new Config with default values and loads from environment
func New() (*Config, error) {
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envInt(name string, set func(int)) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %q is not an integer", name, raw)
	}
	set(n)
	return nil
}

func envSeconds(name string, set func(int)) error {
	return envInt(name, func(n int) {
		if n >= 0 {
			set(n)
		}
	})
}

func envBool(name string, set func(bool)) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	switch raw {
	case "true", "1", "yes":
		set(true)
	case "false", "0", "no":
		set(false)
	default:
		return fmt.Errorf("invalid %s value: %q (use true/false)", name, raw)
	}
	return nil
}

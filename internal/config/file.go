package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appDir = "workagent"

// fileConfig mirrors the on-disk format. Pointers distinguish absent keys
// from zero values so defaults survive partial files.
type fileConfig struct {
	APIKey             *string `yaml:"api_key" json:"api_key"`
	APIURL             *string `yaml:"api_url" json:"api_url"`
	ActivityInterval   *int    `yaml:"activity_interval" json:"activity_interval"`
	ScreenshotInterval *int    `yaml:"screenshot_interval" json:"screenshot_interval"`
	IdleThreshold      *int    `yaml:"idle_threshold" json:"idle_threshold"`
	ScreenshotQuality  *int    `yaml:"screenshot_quality" json:"screenshot_quality"`
	JournalEnabled     *bool   `yaml:"journal_enabled" json:"journal_enabled"`
	JournalPath        *string `yaml:"journal_path" json:"journal_path"`
	JournalRetention   *int    `yaml:"journal_retention" json:"journal_retention"` // days
	PIDFile            *string `yaml:"pid_file" json:"pid_file"`
	LogLevel           *string `yaml:"log_level" json:"log_level"`
	LogFile            *string `yaml:"log_file" json:"log_file"`
	WebEnabled         *bool   `yaml:"web_enabled" json:"web_enabled"`
	WebHost            *string `yaml:"web_host" json:"web_host"`
	WebPort            *int    `yaml:"web_port" json:"web_port"`
}

// Load builds a Config from defaults, the config file and the environment,
// in that order of precedence. An explicit path must exist; a discovered
// one is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FindConfigFile()
	}

	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	return cfg, nil
}

// FindConfigFile returns the first existing config file among the standard
// locations, or "" when none exists.
func FindConfigFile() string {
	for _, candidate := range configCandidates() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func configCandidates() []string {
	var candidates []string

	if path := os.Getenv("WORKAGENT_CONFIG"); path != "" {
		return []string{path}
	}

	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "config.json"),
			filepath.Join(dir, "config.yaml"),
		)
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		candidates = append(candidates, filepath.Join(xdgConfig, appDir, "config.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", appDir, "config.yaml"))
	}

	return candidates
}

// LoadFile applies the keys present in a JSON or YAML file to cfg.
func LoadFile(cfg *Config, path string) error {
	// #nosec G304 - path comes from the operator (flag, env or standard location)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("invalid YAML: %w", err)
		}
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	if fc.APIKey != nil {
		cfg.API.Key = *fc.APIKey
	}
	if fc.APIURL != nil {
		cfg.API.URL = *fc.APIURL
	}
	if fc.ActivityInterval != nil {
		cfg.Tracker.ActivityInterval = seconds(*fc.ActivityInterval)
	}
	if fc.ScreenshotInterval != nil {
		cfg.Tracker.ScreenshotInterval = seconds(*fc.ScreenshotInterval)
	}
	if fc.IdleThreshold != nil {
		cfg.Tracker.IdleThreshold = seconds(*fc.IdleThreshold)
	}
	if fc.ScreenshotQuality != nil {
		cfg.Screenshot.Quality = *fc.ScreenshotQuality
	}
	if fc.JournalEnabled != nil {
		cfg.Journal.Enabled = *fc.JournalEnabled
	}
	if fc.JournalPath != nil {
		cfg.Journal.Path = *fc.JournalPath
	}
	if fc.JournalRetention != nil {
		cfg.Journal.Retention = days(*fc.JournalRetention)
	}
	if fc.PIDFile != nil {
		cfg.Daemon.PIDFile = *fc.PIDFile
	}
	if fc.LogLevel != nil {
		cfg.Log.Level = *fc.LogLevel
	}
	if fc.LogFile != nil {
		cfg.Log.File = *fc.LogFile
	}
	if fc.WebEnabled != nil {
		cfg.Web.Enabled = *fc.WebEnabled
	}
	if fc.WebHost != nil {
		cfg.Web.Host = *fc.WebHost
	}
	if fc.WebPort != nil {
		cfg.Web.Port = *fc.WebPort
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

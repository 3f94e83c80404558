// Package config handles configuration loading and validation for the
// activity warden daemon.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Version is the current configuration schema version.
const Version = 1

// StorageConfig controls where the SQLite database and password file live.
type StorageConfig struct {
	// DataDir holds aw_records.db3 and the password_hash file.
	DataDir string `toml:"data_dir" json:"data_dir" yaml:"data_dir"`
}

// EventBusConfig controls the in-process broadcast of watcher events.
type EventBusConfig struct {
	// Capacity is the number of buffered events retained before the
	// oldest is dropped to make room for a new one.
	Capacity int `toml:"capacity" json:"capacity" yaml:"capacity"`
}

// SchedulerConfig controls the daemon's main event loop.
type SchedulerConfig struct {
	// ShutdownPollMs is how often the loop wakes to check for a
	// requested shutdown while otherwise idle.
	ShutdownPollMs int `toml:"shutdown_poll_ms" json:"shutdown_poll_ms" yaml:"shutdown_poll_ms"`
}

// LoggingConfig controls the daemon's structured logger.
type LoggingConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	Format     string `toml:"format" json:"format" yaml:"format"`
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
}

// BusConfig controls which D-Bus buses the daemon connects to.
type BusConfig struct {
	// UseSessionBus exports EventBus and DaemonContext on the session
	// bus. This should always be true outside of tests.
	UseSessionBus bool `toml:"use_session_bus" json:"use_session_bus" yaml:"use_session_bus"`
	// WatchSuspend subscribes to org.freedesktop.login1.Manager's
	// PrepareForSleep signal on the system bus.
	WatchSuspend bool `toml:"watch_suspend" json:"watch_suspend" yaml:"watch_suspend"`
	// WatchScreenSaver subscribes to org.gnome.ScreenSaver's
	// ActiveChanged signal on the session bus.
	WatchScreenSaver bool `toml:"watch_screensaver" json:"watch_screensaver" yaml:"watch_screensaver"`
}

// Config holds the full daemon configuration.
type Config struct {
	Version   int             `toml:"version" json:"version" yaml:"version"`
	Bus       BusConfig       `toml:"bus" json:"bus" yaml:"bus"`
	Storage   StorageConfig   `toml:"storage" json:"storage" yaml:"storage"`
	EventBus  EventBusConfig  `toml:"event_bus" json:"event_bus" yaml:"event_bus"`
	Scheduler SchedulerConfig `toml:"scheduler" json:"scheduler" yaml:"scheduler"`
	Logging   LoggingConfig   `toml:"logging" json:"logging" yaml:"logging"`
}

// DefaultConfig returns a configuration with sensible defaults, rooted at
// the platform's standard data directory.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Bus: BusConfig{
			UseSessionBus:    true,
			WatchSuspend:     true,
			WatchScreenSaver: true,
		},
		Storage: StorageConfig{
			DataDir: PlatformDataDir(),
		},
		EventBus: EventBusConfig{
			Capacity: 100,
		},
		Scheduler: SchedulerConfig{
			ShutdownPollMs: 500,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Validate checks the configuration for errors and returns every problem
// found, not just the first.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories Config depends on.
func (c *Config) EnsureDirectories() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage.data_dir is required")
	}
	if err := os.MkdirAll(c.Storage.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if c.Logging.Output == "file" && c.Logging.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.FilePath), 0o700); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	return nil
}

// SaveConfig writes cfg to path, choosing the encoding from its extension
// and defaulting to TOML.
func SaveConfig(cfg *Config, path string) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		data, err = encodeToTOML(cfg)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// encodeToTOML renders cfg as TOML. BurntSushi/toml only ships a decoder,
// so the document is built by hand, matching the handful of top-level
// tables Config defines.
func encodeToTOML(cfg *Config) ([]byte, error) {
	return []byte(fmt.Sprintf(`# activity warden daemon configuration
version = %d

[bus]
use_session_bus = %t
watch_suspend = %t
watch_screensaver = %t

[storage]
data_dir = %q

[event_bus]
capacity = %d

[scheduler]
shutdown_poll_ms = %d

[logging]
level = %q
format = %q
output = %q
file_path = %q
max_size_mb = %d
max_backups = %d
max_age_days = %d
`,
		cfg.Version,
		cfg.Bus.UseSessionBus, cfg.Bus.WatchSuspend, cfg.Bus.WatchScreenSaver,
		cfg.Storage.DataDir,
		cfg.EventBus.Capacity,
		cfg.Scheduler.ShutdownPollMs,
		cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.FilePath,
		cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays,
	)), nil
}

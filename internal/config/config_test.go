package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestConfigPathEndsInConfigToml(t *testing.T) {
	path := ConfigPath()
	if !strings.HasSuffix(path, "config.toml") {
		t.Errorf("expected path ending with config.toml, got %s", path)
	}
	if !strings.Contains(path, "activity_warden") {
		t.Errorf("config path should contain activity_warden: %s", path)
	}
}

func TestValidateRejectsBadLoggingLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an invalid logging level")
	}
}

func TestValidateRejectsEmptyDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.DataDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an empty data directory")
	}
}

func TestSaveAndLoadTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Logging.Level = "debug"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := loadConfigFromFile(path)
	if err != nil {
		t.Fatalf("loadConfigFromFile: %v", err)
	}

	if loaded.Storage.DataDir != cfg.Storage.DataDir {
		t.Errorf("DataDir = %q, want %q", loaded.Storage.DataDir, cfg.Storage.DataDir)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", loaded.Logging.Level)
	}
}

func TestLoadConfigFromFileMissingReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadConfigFromFile(filepath.Join(dir, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("loadConfigFromFile: %v", err)
	}
	if cfg.Storage.DataDir != DefaultConfig().Storage.DataDir {
		t.Error("expected defaults when the config file does not exist")
	}
}

func TestLoaderWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loader := NewLoader(path)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	reloaded := make(chan *Config, 1)
	loader.OnChange(func(c *Config) { reloaded <- c })

	if err := loader.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer loader.Close()

	cfg.Logging.Level = "debug"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	select {
	case c := <-reloaded:
		if c.Logging.Level != "debug" {
			t.Errorf("Logging.Level = %q, want debug", c.Logging.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestFindConfigFileEmptyWhenNoneExists(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)

	if got := FindConfigFile(); got != "" {
		t.Errorf("FindConfigFile() = %q, want empty", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "activity_warden"

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/activity_warden/
//   - Linux:   ~/.local/share/activity_warden/
//   - Windows: %APPDATA%\activity_warden\
//
// Falls back to ~/.activity_warden if platform detection fails.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSDataDir()
	case "linux":
		return linuxDataDir()
	case "windows":
		return windowsDataDir()
	default:
		return fallbackDataDir()
	}
}

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/activity_warden/
//   - Linux:   ~/.config/activity_warden/
//   - Windows: %APPDATA%\activity_warden\
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSDataDir() // macOS uses the same dir for config and data
	case "linux":
		return linuxConfigDir()
	case "windows":
		return windowsDataDir() // Windows uses the same dir for config and data
	default:
		return fallbackDataDir()
	}
}

// PlatformLogDir returns the platform-specific log directory.
func PlatformLogDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSLogDir()
	case "linux":
		return filepath.Join(linuxDataDir(), "logs")
	case "windows":
		return windowsLogDir()
	default:
		return filepath.Join(fallbackDataDir(), "logs")
	}
}

func macOSDataDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, "Library", "Application Support", appDirName)
}

func macOSLogDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, "Library", "Logs", appDirName)
}

// linuxDataDir follows the XDG Base Directory Specification.
func linuxDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appDirName)
}

func linuxConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appDirName)
}

func windowsDataDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Roaming", appDirName)
}

func windowsLogDir() string {
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		return filepath.Join(localAppData, appDirName, "logs")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Local", appDirName, "logs")
}

func fallbackDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+appDirName)
}

// SupportedConfigFormats returns the list of config file formats Load
// understands.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile searches standard locations for a config file, returning
// the first one found or an empty string.
func FindConfigFile() string {
	searchDirs := []string{".", PlatformConfigDir(), PlatformDataDir()}

	for _, dir := range searchDirs {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

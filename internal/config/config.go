// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/pathscout/pathscout/internal/issue"
)

const (
	// AppName is the application name, used for platform directories.
	AppName = "pathscout"
	// ConfigFileName is the config file name (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// IgnoreFileName is the ignore-rule file name in the config directory.
	IgnoreFileName = "ignore.conf"
)

// configDirOverride lets tests redirect the config directory.
var configDirOverride string

// SetConfigDirOverride redirects ConfigDir for tests. Pass "" to restore.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// cacheDirOverride lets tests redirect the cache directory.
var cacheDirOverride string

// SetCacheDirOverride redirects CacheDir for tests. Pass "" to restore.
func SetCacheDirOverride(dir string) { cacheDirOverride = dir }

// ConfigDir returns the pathscout configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(configDir, AppName), nil
}

// CacheDir returns the pathscout cache directory: %LOCALAPPDATA% on Windows,
// ~/Library/Caches on macOS, $XDG_CACHE_HOME (default ~/.cache) elsewhere.
func CacheDir() (string, error) {
	if cacheDirOverride != "" {
		return cacheDirOverride, nil
	}

	var cacheDir string
	switch runtime.GOOS {
	case "windows":
		cacheDir = os.Getenv("LOCALAPPDATA")
		if cacheDir == "" {
			cacheDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		cacheDir = filepath.Join(home, "Library", "Caches")
	default:
		cacheDir = os.Getenv("XDG_CACHE_HOME")
		if cacheDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			cacheDir = filepath.Join(home, ".cache")
		}
	}
	return filepath.Join(cacheDir, AppName), nil
}

// DefaultConfigPath is the full path of the config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// IgnoreFilePath is the full path of the ignore-rule file.
func IgnoreFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, IgnoreFileName), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// EnsureCacheDir creates the cache directory if it doesn't exist.
func EnsureCacheDir() error {
	dir, err := CacheDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads the config file, applying defaults for every unset key. A
// missing file yields the defaults; a malformed or invalid file is an error
// with suggestions attached.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("case_sensitive", defaults.CaseSensitive)
	v.SetDefault("recursive", defaults.Recursive)
	v.SetDefault("unix_paths", defaults.UnixPaths)
	v.SetDefault("use_cache", defaults.UseCache)
	v.SetDefault("probe_timeout_seconds", defaults.ProbeTimeoutSeconds)
	v.SetDefault("bitness", string(defaults.Bitness))
	v.SetDefault("env_vars", defaults.EnvVars)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	if fileExists(path) {
		v.SetConfigFile(path)
		v.SetConfigType(ConfigFileExt)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithKind(issue.ConfigMalformed).
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid TOML syntax").
				WithSuggestion("Run 'pathscout config init' to regenerate the defaults").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.NewErrorContext().
			WithKind(issue.ConfigMalformed).
			WithOperation("decode configuration").
			WithResource(path).
			WithSuggestion("Verify the configuration values match the documented keys").
			Wrap(err).
			BuildError()
	}
	if err := cfg.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithKind(issue.ConfigMalformed).
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("See 'pathscout config show' for the effective values").
			Wrap(err).
			BuildError()
	}
	return &cfg, nil
}

// Save writes the config as TOML, creating the config directory as needed.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	body, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, body, 0o644)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

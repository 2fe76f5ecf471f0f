// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/pathscout/pathscout/internal/peinfo"
)

const (
	// BitnessAuto lets the probe follow the host word size.
	BitnessAuto Bitness = "auto"
	// Bitness32 forces 32-bit library probes (-m32 where supported).
	Bitness32 Bitness = "32"
	// Bitness64 forces 64-bit library probes (-m64 where supported).
	Bitness64 Bitness = "64"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidBitness is returned when a Bitness value is not recognized.
	ErrInvalidBitness = errors.New("invalid bitness")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Bitness selects the word size requested from compiler probes.
	Bitness string

	// InvalidBitnessError is returned when a Bitness value is not
	// recognized. It wraps ErrInvalidBitness for errors.Is() compatibility.
	InvalidBitnessError struct {
		Value Bitness
	}

	// ColorScheme specifies the terminal color scheme.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not
	// recognized. It wraps ErrInvalidColorScheme for errors.Is()
	// compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError aggregates every validation failure in a loaded
	// config. It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		Errs []error
	}

	// UIConfig holds presentation settings.
	UIConfig struct {
		ColorScheme ColorScheme `toml:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `toml:"verbose" mapstructure:"verbose"`
	}

	// Config is the application configuration, loaded from config.toml in
	// the config directory with viper and persisted with go-toml.
	Config struct {
		// CaseSensitive turns off the platform-default case folding in
		// pattern matching.
		CaseSensitive bool `toml:"case_sensitive" mapstructure:"case_sensitive"`
		// Recursive walks matched directories depth-first.
		Recursive bool `toml:"recursive" mapstructure:"recursive"`
		// UnixPaths renders reported paths with forward slashes.
		UnixPaths bool `toml:"unix_paths" mapstructure:"unix_paths"`
		// UseCache enables the persistent probe cache.
		UseCache bool `toml:"use_cache" mapstructure:"use_cache"`
		// ProbeTimeoutSeconds caps each probe spawn.
		ProbeTimeoutSeconds int `toml:"probe_timeout_seconds" mapstructure:"probe_timeout_seconds"`
		// Bitness narrows compiler library probes.
		Bitness Bitness `toml:"bitness" mapstructure:"bitness"`
		// EnvVars names additional PATH-style variables to search.
		EnvVars []string `toml:"env_vars" mapstructure:"env_vars"`
		UI      UIConfig `toml:"ui" mapstructure:"ui"`
	}
)

// IsValid reports whether the Bitness is recognized.
func (b Bitness) IsValid() bool {
	switch b {
	case BitnessAuto, Bitness32, Bitness64:
		return true
	default:
		return false
	}
}

// Requested maps the setting to the probe-facing bitness value.
func (b Bitness) Requested() peinfo.Bitness {
	switch b {
	case Bitness32:
		return peinfo.Bitness32
	case Bitness64:
		return peinfo.Bitness64
	default:
		return peinfo.BitnessUnknown
	}
}

// Error implements the error interface.
func (e *InvalidBitnessError) Error() string {
	return fmt.Sprintf("%q is not a valid bitness (want auto, 32 or 64)", string(e.Value))
}

// Unwrap returns ErrInvalidBitness so callers can use errors.Is.
func (e *InvalidBitnessError) Unwrap() error { return ErrInvalidBitness }

// IsValid reports whether the ColorScheme is recognized.
func (c ColorScheme) IsValid() bool {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true
	default:
		return false
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("%q is not a valid color scheme (want auto, dark or light)", string(e.Value))
}

// Unwrap returns ErrInvalidColorScheme so callers can use errors.Is.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("config validation failed: %v", errors.Join(e.Errs...))
}

// Unwrap returns ErrInvalidConfig so callers can use errors.Is.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks every field against its allowed values.
func (c *Config) Validate() error {
	var errs []error
	if !c.Bitness.IsValid() {
		errs = append(errs, &InvalidBitnessError{Value: c.Bitness})
	}
	if !c.UI.ColorScheme.IsValid() {
		errs = append(errs, &InvalidColorSchemeError{Value: c.UI.ColorScheme})
	}
	if c.ProbeTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("probe_timeout_seconds must not be negative, got %d", c.ProbeTimeoutSeconds))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{Errs: errs}
	}
	return nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		UseCache:            true,
		ProbeTimeoutSeconds: 30,
		Bitness:             BitnessAuto,
		UI:                  UIConfig{ColorScheme: ColorSchemeAuto},
	}
}

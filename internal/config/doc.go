// SPDX-License-Identifier: MPL-2.0

// Package config owns the application configuration: platform directories,
// defaults, the TOML config file, and the locations of the ignore-rule file
// and the probe cache.
package config

// Package config loads, normalizes, and validates scribe configuration
// from TOML files and environment overrides.
package config

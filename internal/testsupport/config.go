// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. Networked collaborators point at loopback; one worker keeps
// pipeline scheduling deterministic.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Jobs.Workers = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithEngine sets the default transcription engine.
func WithEngine(engine string) ConfigOption {
	return func(c *config.Config) {
		c.Transcription.Engine = engine
	}
}

// WithLLM sets the summarization backend credentials and model.
func WithLLM(apiKey, model string) ConfigOption {
	return func(c *config.Config) {
		c.LLM.APIKey = apiKey
		c.LLM.Model = model
	}
}

// WithExtraction toggles the summarization step default.
func WithExtraction(enabled bool) ConfigOption {
	return func(c *config.Config) {
		c.Extraction.Enabled = enabled
	}
}

// WithWorkers overrides the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Jobs.Workers = n
	}
}

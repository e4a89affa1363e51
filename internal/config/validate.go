package config

import (
	"errors"
	"fmt"
)

var knownEngines = map[string]struct{}{
	"auto":     {},
	"captions": {},
	"whisper":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if _, ok := knownEngines[c.Transcription.Engine]; !ok {
		return fmt.Errorf("transcription.engine must be one of auto, captions, whisper (got %q)", c.Transcription.Engine)
	}
	if c.Transcription.OverlapSeconds >= c.Transcription.ChunkSeconds {
		return errors.New("transcription.overlap_seconds must be smaller than chunk_seconds")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if !c.Extraction.Enabled {
		return nil
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/scribe/config.toml"
		}
		return fmt.Errorf("llm.api_key is required when extraction is enabled. Set SCRIBE_LLM_API_KEY or edit %s (create with 'scribe config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.Workers > 16 {
		return errors.New("jobs.workers must be 16 or fewer")
	}
	return nil
}

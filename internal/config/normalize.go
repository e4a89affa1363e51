package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeJobs()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.YtDlp) == "" {
		c.Tools.YtDlp = "yt-dlp"
	}
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = "ffprobe"
	}
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	if c.Transcription.Engine == "" {
		c.Transcription.Engine = defaultEngine
	}
	if strings.TrimSpace(c.Transcription.WhisperModel) == "" {
		c.Transcription.WhisperModel = defaultWhisperModel
	}
	if strings.TrimSpace(c.Transcription.WhisperBinary) == "" {
		c.Transcription.WhisperBinary = defaultWhisperBinary
	}

	lang := strings.TrimSpace(c.Transcription.CaptionLanguage)
	if lang == "" {
		lang = defaultCaptionLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("transcription.caption_language: invalid language %q: %w", lang, err)
	}
	base, _ := tag.Base()
	c.Transcription.CaptionLanguage = base.String()

	if c.Transcription.ChunkSeconds <= 0 {
		c.Transcription.ChunkSeconds = defaultChunkSeconds
	}
	if c.Transcription.OverlapSeconds <= 0 {
		c.Transcription.OverlapSeconds = defaultOverlapSeconds
	}
	if c.Transcription.MinChunkSeconds <= 0 {
		c.Transcription.MinChunkSeconds = defaultMinChunkSeconds
	}
	if c.Transcription.DedupBufferSeconds <= 0 {
		c.Transcription.DedupBufferSeconds = defaultDedupBuffer
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeJobs() {
	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = defaultWorkers
	}
	if c.Jobs.CleanupIntervalMinutes <= 0 {
		c.Jobs.CleanupIntervalMinutes = defaultCleanupMinutes
	}
	if c.Jobs.KeepaliveSeconds <= 0 {
		c.Jobs.KeepaliveSeconds = defaultKeepaliveSeconds
	}
	if c.Jobs.SubscriberQueue <= 0 {
		c.Jobs.SubscriberQueue = defaultSubscriberQueue
	}
	// TTLHours <= 0 is meaningful: it disables expiry.
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

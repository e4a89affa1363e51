package config

const (
	defaultOutputDir       = "~/.local/share/scribe/output"
	defaultLogDir          = "~/.local/share/scribe/logs"
	defaultAPIBind         = "127.0.0.1:8590"
	defaultEngine          = "auto"
	defaultWhisperBinary   = "whisper-cli"
	defaultWhisperModel    = "large-v3-turbo"
	defaultCaptionLanguage = "en"
	defaultLLMBaseURL      = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel        = "anthropic/claude-sonnet-4.5"
	defaultLLMTimeout      = 120
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"

	defaultWorkers          = 2
	defaultJobTTLHours      = 24
	defaultCleanupMinutes   = 30
	defaultKeepaliveSeconds = 30
	defaultSubscriberQueue  = 100

	// Chunked transcription: 30 minute windows with 5 second overlap,
	// applied only to audio longer than 30 minutes.
	defaultChunkSeconds    = 30 * 60
	defaultOverlapSeconds  = 5
	defaultMinChunkSeconds = 30 * 60
	defaultDedupBuffer     = 2.0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Tools: Tools{
			YtDlp:   "yt-dlp",
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Transcription: Transcription{
			Engine:             defaultEngine,
			WhisperBinary:      defaultWhisperBinary,
			WhisperModel:       defaultWhisperModel,
			CaptionLanguage:    defaultCaptionLanguage,
			ChunkSeconds:       defaultChunkSeconds,
			OverlapSeconds:     defaultOverlapSeconds,
			MinChunkSeconds:    defaultMinChunkSeconds,
			DedupBufferSeconds: defaultDedupBuffer,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Jobs: Jobs{
			Workers:                defaultWorkers,
			TTLHours:               defaultJobTTLHours,
			CleanupIntervalMinutes: defaultCleanupMinutes,
			KeepaliveSeconds:       defaultKeepaliveSeconds,
			SubscriberQueue:        defaultSubscriberQueue,
		},
		Extraction: Extraction{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

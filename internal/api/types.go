package api

import "scribe/internal/jobs"

// SubmitRequest is the POST /api/jobs payload.
type SubmitRequest struct {
	URL     string `json:"url"`
	Engine  string `json:"engine,omitempty"`
	LLM     string `json:"llm,omitempty"`
	Extract *bool  `json:"extract,omitempty"`
}

// JobListResponse wraps the registry listing, newest first.
type JobListResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

// HealthResponse reports service liveness and registry counts.
type HealthResponse struct {
	Service  string         `json:"service"`
	Version  string         `json:"version,omitempty"`
	Status   string         `json:"status"`
	Jobs     jobs.Stats     `json:"jobs"`
	TTLHours int            `json:"ttl_hours"`
	History  map[string]int `json:"history,omitempty"`
}

// ConfigResponse is the non-sensitive configuration view. Secrets are
// reported only as presence flags.
type ConfigResponse struct {
	Engine          string `json:"engine"`
	WhisperModel    string `json:"whisper_model,omitempty"`
	CaptionLanguage string `json:"caption_language"`
	LLMModel        string `json:"llm_model,omitempty"`
	LLMBaseURL      string `json:"llm_base_url,omitempty"`
	LLMKeySet       bool   `json:"llm_key_set"`
	ExtractEnabled  bool   `json:"extract_enabled"`
	Workers         int    `json:"workers"`
	TTLHours        int    `json:"ttl_hours"`
	OutputDir       string `json:"output_dir"`
}

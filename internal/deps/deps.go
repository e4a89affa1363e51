// Package deps verifies the external binaries the pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"scribe/internal/config"
)

// Requirement defines an external dependency scribe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig returns the requirements implied by the configuration.
// whisper-cli is optional under the captions engine since no audio is
// ever transcribed locally.
func ForConfig(cfg *config.Config) []Requirement {
	whisperOptional := cfg.Transcription.Engine == "captions"
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Tools.YtDlp,
			Description: "Downloads metadata, captions, and audio",
		},
		{
			Name:        "ffmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Extracts audio windows for chunked transcription",
			Optional:    whisperOptional,
		},
		{
			Name:        "ffprobe",
			Command:     cfg.Tools.FFprobe,
			Description: "Inspects audio duration",
			Optional:    whisperOptional,
		},
		{
			Name:        "whisper",
			Command:     cfg.Transcription.WhisperBinary,
			Description: "Local speech-to-text fallback",
			Optional:    whisperOptional,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired filters statuses down to unavailable non-optional entries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

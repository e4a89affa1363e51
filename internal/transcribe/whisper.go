package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scribe/internal/transcript"
)

// DefaultWhisperBinary is the whisper.cpp CLI looked up on PATH when no
// explicit binary is configured.
const DefaultWhisperBinary = "whisper-cli"

// WhisperEngine runs the whisper.cpp command line tool and parses its
// JSON output.
type WhisperEngine struct {
	binary        string
	model         string
	language      string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperEngine creates an engine invoking binary with the given
// model. language may be empty for auto-detection.
func NewWhisperEngine(binary, model, language string) *WhisperEngine {
	if binary == "" {
		binary = DefaultWhisperBinary
	}
	return &WhisperEngine{binary: binary, model: model, language: language}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *WhisperEngine) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	e.commandRunner = runner
}

// Name implements Engine.
func (e *WhisperEngine) Name() string { return "whisper" }

func (e *WhisperEngine) run(ctx context.Context, args ...string) error {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, e.binary, args...)
	}
	cmd := exec.CommandContext(ctx, e.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", e.binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe implements Engine. The whisper CLI writes a JSON file next
// to the audio input, which is parsed and removed before returning.
func (e *WhisperEngine) Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	if audioPath == "" {
		return nil, errors.New("transcribe: audio path required")
	}
	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	args := []string{
		"--model", e.model,
		"--file", audioPath,
		"--output-json",
		"--output-file", outBase,
		"--no-prints",
	}
	if e.language != "" {
		args = append(args, "--language", e.language)
	}
	if err := e.run(ctx, args...); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}

	jsonPath := outBase + ".json"
	segments, err := loadWhisperSegments(jsonPath)
	os.Remove(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return segments, nil
}

// whisperPayload mirrors whisper.cpp's JSON output shape. Offsets are
// in milliseconds.
type whisperPayload struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func loadWhisperSegments(jsonPath string) ([]transcript.Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse output json: %w", err)
	}
	segments := make([]transcript.Segment, 0, len(payload.Transcription))
	for _, entry := range payload.Transcription {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{
			Start: float64(entry.Offsets.From) / 1000.0,
			End:   float64(entry.Offsets.To) / 1000.0,
			Text:  text,
		})
	}
	return segments, nil
}

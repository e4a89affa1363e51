package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBinary is the yt-dlp executable looked up on PATH when no
// explicit binary is configured.
const DefaultBinary = "yt-dlp"

// ErrCaptionsUnavailable reports that a video has no auto-generated
// captions in the requested language. Callers distinguish it from
// transport or tool failures to decide whether audio fallback applies.
var ErrCaptionsUnavailable = errors.New("captions unavailable")

// Metadata describes a video as reported by yt-dlp.
type Metadata struct {
	VideoID         string  `json:"id"`
	Title           string  `json:"title"`
	Author          string  `json:"uploader"`
	Channel         string  `json:"channel"`
	UploadDate      string  `json:"upload_date"`
	DurationSeconds float64 `json:"duration"`
	Description     string  `json:"description"`
	URL             string  `json:"-"`
}

// Service runs yt-dlp against a working directory for audio and
// caption artifacts.
type Service struct {
	binary        string
	audioDir      string
	captionsDir   string
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a downloader writing audio into audioDir and
// captions into a captions subdirectory next to it.
func NewService(binary, audioDir string) *Service {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Service{
		binary:      binary,
		audioDir:    audioDir,
		captionsDir: filepath.Join(filepath.Dir(audioDir), "captions"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// AudioDir returns the directory audio files are written to.
func (s *Service) AudioDir() string { return s.audioDir }

func (s *Service) run(ctx context.Context, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return output, fmt.Errorf("%s: %w: %s", s.binary, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return output, fmt.Errorf("%s: %w", s.binary, err)
	}
	return output, nil
}

// FetchMetadata extracts video metadata without downloading media.
func (s *Service) FetchMetadata(ctx context.Context, url string) (Metadata, error) {
	var meta Metadata
	if url == "" {
		return meta, errors.New("download: url required")
	}
	output, err := s.run(ctx, "--dump-single-json", "--skip-download", "--no-warnings", "--no-playlist", url)
	if err != nil {
		return meta, fmt.Errorf("fetch metadata: %w", err)
	}
	if err := json.Unmarshal(output, &meta); err != nil {
		return meta, fmt.Errorf("fetch metadata: parse yt-dlp json: %w", err)
	}
	if meta.Title == "" {
		meta.Title = "Unknown"
	}
	if meta.Author == "" {
		meta.Author = meta.Channel
	}
	meta.URL = url
	return meta, nil
}

// FetchAudio downloads the best audio stream as an mp3 named
// baseName.mp3 under the service's audio directory and returns its path.
func (s *Service) FetchAudio(ctx context.Context, url, baseName string) (string, error) {
	if url == "" {
		return "", errors.New("download: url required")
	}
	if baseName == "" {
		return "", errors.New("download: base name required")
	}
	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("fetch audio: ensure dir: %w", err)
	}
	template := filepath.Join(s.audioDir, baseName+".%(ext)s")
	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--no-playlist",
		"--output", template,
		url,
	}
	if _, err := s.run(ctx, args...); err != nil {
		return "", fmt.Errorf("fetch audio: %w", err)
	}
	audioPath := filepath.Join(s.audioDir, baseName+".mp3")
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("fetch audio: downloaded file not found: %s", audioPath)
	}
	return audioPath, nil
}

// FetchCaptions downloads auto-generated captions in the requested
// language as a VTT file and returns its path. It returns
// ErrCaptionsUnavailable when the video carries no auto captions for
// that language.
func (s *Service) FetchCaptions(ctx context.Context, url, baseName, language string) (string, error) {
	if url == "" {
		return "", errors.New("download: url required")
	}
	if language == "" {
		language = "en"
	}
	if err := os.MkdirAll(s.captionsDir, 0o755); err != nil {
		return "", fmt.Errorf("fetch captions: ensure dir: %w", err)
	}
	template := filepath.Join(s.captionsDir, baseName+".%(ext)s")
	args := []string{
		"--skip-download",
		"--write-auto-subs",
		"--sub-langs", language,
		"--sub-format", "vtt",
		"--no-playlist",
		"--output", template,
		url,
	}
	if _, err := s.run(ctx, args...); err != nil {
		return "", fmt.Errorf("fetch captions: %w", err)
	}

	captionPath := filepath.Join(s.captionsDir, baseName+"."+language+".vtt")
	if _, err := os.Stat(captionPath); err == nil {
		return captionPath, nil
	}
	// yt-dlp appends locale variants for some videos (en-orig, en-US).
	matches, _ := filepath.Glob(filepath.Join(s.captionsDir, baseName+"*.vtt"))
	if len(matches) > 0 {
		return matches[0], nil
	}
	return "", ErrCaptionsUnavailable
}

// Discard removes a downloaded artifact, ignoring files already gone.
func (s *Service) Discard(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard %s: %w", path, err)
	}
	return nil
}

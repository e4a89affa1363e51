// Package audio extracts bounded audio windows with ffmpeg for chunked
// transcription.
package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ExtractWindow extracts a time window of audio from source into dest as a
// mono 16kHz WAV suitable for speech recognition. startSec is the window
// offset in seconds and durationSec its length.
func ExtractWindow(ctx context.Context, ffmpegBinary, source string, startSec, durationSec float64, dest string) error {
	if durationSec <= 0 {
		return fmt.Errorf("extract window: invalid duration %v", durationSec)
	}
	if startSec < 0 {
		return fmt.Errorf("extract window: invalid start %v", startSec)
	}
	binary := strings.TrimSpace(ffmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(durationSec),
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract window: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

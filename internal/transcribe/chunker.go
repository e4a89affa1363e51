package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/media/audio"
	"scribe/internal/transcript"
)

// Boundary heuristics. These are similarity heuristics without a formal
// guarantee; keep them small and do not strengthen speculatively.
const (
	// boundaryExtendSeconds is how far past the previous window's last
	// segment a new segment must reach before it is considered new
	// speech rather than a re-transcription of the overlap.
	boundaryExtendSeconds = 0.5
	// minBoundaryMatchWords is the shortest word run shared between a
	// window's final segment and the next window's opener that counts
	// as the same speech.
	minBoundaryMatchWords = 3
)

// Window is one audio slice transcribed independently.
type Window struct {
	OffsetSeconds   float64
	DurationSeconds float64
}

// Chunker transcribes long audio in overlapping windows through an
// Engine, stitching the per-window output into one segment sequence.
type Chunker struct {
	engine             Engine
	ffmpegBinary       string
	chunkSeconds       float64
	overlapSeconds     float64
	minChunkSeconds    float64
	dedupBufferSeconds float64
	logger             *slog.Logger

	extractWindow func(ctx context.Context, ffmpegBinary, source string, startSec, durationSec float64, dest string) error
}

// NewChunker wires a chunker around engine. chunkSeconds is the window
// length, overlapSeconds the shared span between consecutive windows.
func NewChunker(engine Engine, ffmpegBinary string, chunkSeconds, overlapSeconds, dedupBufferSeconds float64, logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Chunker{
		engine:             engine,
		ffmpegBinary:       ffmpegBinary,
		chunkSeconds:       chunkSeconds,
		overlapSeconds:     overlapSeconds,
		dedupBufferSeconds: dedupBufferSeconds,
		logger:             logger,
		extractWindow:      audio.ExtractWindow,
	}
}

// WithMinChunkSeconds sets the duration at or below which audio is
// transcribed in one pass. Defaults to the window length.
func (c *Chunker) WithMinChunkSeconds(seconds float64) {
	if seconds > 0 {
		c.minChunkSeconds = seconds
	}
}

// Windows computes the slice plan for an input of the given duration.
// Consecutive windows overlap by overlapSeconds; the final window is
// clipped to the audio end.
func (c *Chunker) Windows(durationSeconds float64) []Window {
	if durationSeconds <= 0 || c.chunkSeconds <= 0 {
		return nil
	}
	stride := c.chunkSeconds - c.overlapSeconds
	if stride <= 0 {
		return []Window{{OffsetSeconds: 0, DurationSeconds: durationSeconds}}
	}
	var windows []Window
	for offset := 0.0; offset < durationSeconds; offset += stride {
		length := math.Min(c.chunkSeconds, durationSeconds-offset)
		windows = append(windows, Window{OffsetSeconds: offset, DurationSeconds: length})
	}
	return windows
}

// Transcribe splits the audio into windows, transcribes each, and
// returns one offset-corrected, boundary-deduplicated segment sequence.
// A window that fails to transcribe is logged and skipped; the call
// fails only when every window fails. onProgress, when non-nil, is
// called after each completed window.
func (c *Chunker) Transcribe(ctx context.Context, audioPath string, durationSeconds float64, workDir string, onProgress func(done, total int)) ([]transcript.Segment, error) {
	minChunk := c.minChunkSeconds
	if minChunk <= 0 {
		minChunk = c.chunkSeconds
	}
	if durationSeconds > 0 && durationSeconds <= minChunk {
		return c.engine.Transcribe(ctx, audioPath)
	}
	windows := c.Windows(durationSeconds)
	if len(windows) == 0 {
		return nil, fmt.Errorf("chunker: no windows for duration %.1fs", durationSeconds)
	}
	if len(windows) == 1 {
		return c.engine.Transcribe(ctx, audioPath)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("chunker: ensure work dir: %w", err)
	}

	var merged []transcript.Segment
	failures := 0
	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segments, err := c.transcribeWindow(ctx, audioPath, workDir, i, window)
		if err != nil {
			failures++
			c.logger.Warn("chunk transcription failed, skipping window",
				logging.Int("window", i),
				logging.Float64("offset_seconds", window.OffsetSeconds),
				logging.Error(err))
			continue
		}
		for s := range segments {
			segments[s] = segments[s].Shift(window.OffsetSeconds)
		}
		merged = c.mergeWindow(merged, segments, i, window)
		if onProgress != nil {
			onProgress(i+1, len(windows))
		}
	}
	if failures == len(windows) {
		return nil, fmt.Errorf("chunker: all %d windows failed", len(windows))
	}
	return merged, nil
}

// transcribeWindow extracts one window to a temporary WAV, transcribes
// it, and removes the WAV before returning regardless of outcome.
func (c *Chunker) transcribeWindow(ctx context.Context, audioPath, workDir string, index int, window Window) ([]transcript.Segment, error) {
	chunkPath := filepath.Join(workDir, fmt.Sprintf("chunk_%03d.wav", index))
	defer os.Remove(chunkPath)

	if err := c.extractWindow(ctx, c.ffmpegBinary, audioPath, window.OffsetSeconds, window.DurationSeconds, chunkPath); err != nil {
		return nil, fmt.Errorf("extract window: %w", err)
	}
	return c.engine.Transcribe(ctx, chunkPath)
}

// mergeWindow appends a window's segments to the merged sequence,
// dropping re-transcriptions of speech already captured in the overlap
// with the previous window.
func (c *Chunker) mergeWindow(merged, segments []transcript.Segment, index int, window Window) []transcript.Segment {
	if index == 0 || len(merged) == 0 {
		return append(merged, segments...)
	}
	last := merged[len(merged)-1]
	boundary := window.OffsetSeconds + c.dedupBufferSeconds
	for _, seg := range segments {
		if seg.Start < boundary {
			if seg.End <= last.End+boundaryExtendSeconds {
				continue
			}
			if boundaryOverlap(last.Text, seg.Text) {
				continue
			}
		}
		merged = append(merged, seg)
		last = seg
	}
	return merged
}

// boundaryOverlap reports whether next looks like a re-transcription of
// prev: one text contains the other, or prev's tail and next's head
// share a word run of at least minBoundaryMatchWords.
func boundaryOverlap(prev, next string) bool {
	prevNorm := normalizeText(prev)
	nextNorm := normalizeText(next)
	if prevNorm == "" || nextNorm == "" {
		return false
	}
	if strings.Contains(prevNorm, nextNorm) || strings.Contains(nextNorm, prevNorm) {
		return true
	}
	prevWords := strings.Fields(prevNorm)
	nextWords := strings.Fields(nextNorm)
	maxRun := len(prevWords)
	if len(nextWords) < maxRun {
		maxRun = len(nextWords)
	}
	for run := maxRun; run >= minBoundaryMatchWords; run-- {
		tail := strings.Join(prevWords[len(prevWords)-run:], " ")
		head := strings.Join(nextWords[:run], " ")
		if tail == head {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '!', '?', ';', ':', '"', '\'':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

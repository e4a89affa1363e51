package transcribe

import (
	"context"

	"scribe/internal/transcript"
)

// Engine transcribes one audio file into timed segments.
type Engine interface {
	// Name identifies the engine for logging and job snapshots.
	Name() string
	// Transcribe converts the audio at path into ordered segments with
	// timestamps relative to the start of that file.
	Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error)
}

// Package transcript defines the timestamped segment model shared by the
// caption and audio transcription paths.
package transcript

import (
	"fmt"
	"strings"
)

// Segment is a finalized transcript unit on the global audio timeline.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Valid reports whether the segment carries usable text and sane timing.
func (s Segment) Valid() bool {
	return s.Start <= s.End && strings.TrimSpace(s.Text) != ""
}

// Shift returns a copy of the segment moved by offset seconds.
func (s Segment) Shift(offset float64) Segment {
	return Segment{Start: s.Start + offset, End: s.End + offset, Text: s.Text}
}

// FormatTimestamp renders seconds as a [HH:MM:SS] stamp.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("[%02d:%02d:%02d]", hours, minutes, secs)
}

// Render formats segments as one line per segment, optionally timestamped.
func Render(segments []Segment, includeTimestamps bool) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		if includeTimestamps {
			lines = append(lines, FormatTimestamp(seg.Start)+" "+seg.Text)
		} else {
			lines = append(lines, seg.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// FullText joins segment text with spaces, dropping timestamps entirely.
func FullText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

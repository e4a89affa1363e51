package captions

import (
	"sort"
	"strings"

	"scribe/internal/transcript"
)

// DefaultOverlapThreshold is the temporal overlap fraction (relative to the
// newer cue's own duration) above which near-duplicate cues are merged.
// Heuristic, carried over from observed auto-caption behavior.
const DefaultOverlapThreshold = 0.5

// Deduplicate collapses duplicate and heavily overlapping cues into a clean
// segment sequence using the default overlap threshold.
func Deduplicate(cues []Cue) []transcript.Segment {
	return DeduplicateThreshold(cues, DefaultOverlapThreshold)
}

// DeduplicateThreshold is a streaming single-pass reduction over cues sorted
// by start time:
//   - identical text extends the previous segment's end and drops the cue;
//   - overlap beyond the threshold where one text contains the other keeps
//     the longer text with the later end time;
//   - anything else starts a new segment.
func DeduplicateThreshold(cues []Cue, overlapThreshold float64) []transcript.Segment {
	if len(cues) == 0 {
		return nil
	}

	sorted := make([]Cue, len(cues))
	copy(sorted, cues)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	result := make([]transcript.Segment, 0, len(sorted))
	for _, cue := range sorted {
		if len(result) == 0 {
			result = append(result, transcript.Segment{Start: cue.Start, End: cue.End, Text: cue.Text})
			continue
		}
		prev := &result[len(result)-1]

		if cue.Text == prev.Text {
			if cue.End > prev.End {
				prev.End = cue.End
			}
			continue
		}

		overlap := minFloat(prev.End, cue.End) - maxFloat(prev.Start, cue.Start)
		duration := cue.End - cue.Start
		if overlap > 0 && duration > 0 && overlap/duration > overlapThreshold {
			if strings.Contains(cue.Text, prev.Text) {
				prev.Text = cue.Text
				prev.End = maxFloat(prev.End, cue.End)
				continue
			}
			if strings.Contains(prev.Text, cue.Text) {
				continue
			}
		}

		result = append(result, transcript.Segment{Start: cue.Start, End: cue.End, Text: cue.Text})
	}
	return result
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

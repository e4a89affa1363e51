// Package captions parses WebVTT caption files and collapses the duplicated
// cues that YouTube auto-captions produce.
package captions

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"scribe/internal/transcript"
)

// Cue is a raw caption entry before deduplication.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// Timing line: "00:01:02.500 --> 00:01:04.000", hours optional.
var cuePattern = regexp.MustCompile(`^(\d{1,2}:)?(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{1,2}:)?(\d{2}):(\d{2})\.(\d{3})`)

var markupPattern = regexp.MustCompile(`<[^>]+>`)

var spacePattern = regexp.MustCompile(`\s+`)

// ParseFile reads a VTT file and returns deduplicated transcript segments.
func ParseFile(path string) ([]transcript.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	cues := ParseCues(string(data))
	if len(cues) == 0 {
		return nil, nil
	}
	return Deduplicate(cues), nil
}

// ParseCues extracts raw cues from VTT content. Header, NOTE, and STYLE
// blocks are skipped; inline markup is stripped and whitespace collapsed.
func ParseCues(content string) []Cue {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")

	var cues []Cue
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 {
			continue
		}
		first := lines[0]
		if strings.HasPrefix(first, "WEBVTT") || strings.HasPrefix(first, "NOTE") || strings.HasPrefix(first, "STYLE") {
			continue
		}

		timingIdx := -1
		var match []string
		for i, line := range lines {
			if m := cuePattern.FindStringSubmatch(line); m != nil {
				timingIdx = i
				match = m
				break
			}
		}
		if timingIdx < 0 {
			continue
		}

		start := timestampSeconds(match[1], match[2], match[3], match[4])
		end := timestampSeconds(match[5], match[6], match[7], match[8])

		var parts []string
		for _, line := range lines[timingIdx+1:] {
			if cleaned := CleanText(line); cleaned != "" {
				parts = append(parts, cleaned)
			}
		}
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}
	return cues
}

// CleanText strips VTT formatting tags and collapses internal whitespace.
func CleanText(text string) string {
	text = markupPattern.ReplaceAllString(text, "")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func timestampSeconds(hours, minutes, seconds, millis string) float64 {
	h := 0
	if hours != "" {
		h, _ = strconv.Atoi(strings.TrimSuffix(hours, ":"))
	}
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	return float64(h*3600+m*60+s) + float64(ms)/1000
}

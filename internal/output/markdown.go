package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// descriptionTruncateLength caps how much of the video description is
// embedded in the transcript document.
const descriptionTruncateLength = 500

// Meta carries the video fields surfaced in generated documents.
type Meta struct {
	Title           string
	Author          string
	UploadDate      string
	URL             string
	DurationSeconds float64
	Description     string
}

// Writer saves transcript and summary markdown under an output
// directory, one subdirectory per document kind.
type Writer struct {
	outputDir string
	now       func() time.Time
}

// NewWriter creates a writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir, now: time.Now}
}

// TranscriptMarkdown renders the transcript document.
func TranscriptMarkdown(meta Meta, transcriptText string) string {
	description := meta.Description
	ellipsis := ""
	if len(description) > descriptionTruncateLength {
		description = description[:descriptionTruncateLength]
		ellipsis = "..."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	fmt.Fprintf(&b, "**Author**: %s\n", meta.Author)
	fmt.Fprintf(&b, "**Date**: %s\n", meta.UploadDate)
	fmt.Fprintf(&b, "**URL**: %s\n", meta.URL)
	fmt.Fprintf(&b, "**Duration**: %s\n\n", FormatDuration(meta.DurationSeconds))
	fmt.Fprintf(&b, "## Description\n%s%s\n\n", description, ellipsis)
	fmt.Fprintf(&b, "## Transcript\n\n%s\n", transcriptText)
	return b.String()
}

// SummaryMarkdown renders the summary document.
func (w *Writer) SummaryMarkdown(meta Meta, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s - Summary\n\n", meta.Title)
	fmt.Fprintf(&b, "**Author**: %s\n", meta.Author)
	fmt.Fprintf(&b, "**Date**: %s\n", meta.UploadDate)
	fmt.Fprintf(&b, "**Processed**: %s\n\n", w.now().Format("2006-01-02"))
	fmt.Fprintf(&b, "---\n\n%s\n", summary)
	return b.String()
}

// FilenameBase combines the current date and sanitized title into the
// shared base for a job's output files.
func (w *Writer) FilenameBase(title string) string {
	return w.now().Format("2006-01-02") + " " + Sanitize(title)
}

// SaveTranscript writes the transcript document and returns its path.
func (w *Writer) SaveTranscript(meta Meta, transcriptText, filenameBase string) (string, error) {
	content := TranscriptMarkdown(meta, transcriptText)
	path, err := EnsurePath(filepath.Join(w.outputDir, "transcripts"), filenameBase+"-transcript.md")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	return path, nil
}

// SaveSummary writes the summary document and returns its path.
func (w *Writer) SaveSummary(meta Meta, summary, filenameBase string) (string, error) {
	content := w.SummaryMarkdown(meta, summary)
	path, err := EnsurePath(filepath.Join(w.outputDir, "summaries"), filenameBase+"-summary.md")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("save summary: %w", err)
	}
	return path, nil
}

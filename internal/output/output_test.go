package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"My Great Video! (Part 2)", "my-great-video-part-2"},
		{"  --- spaced   out ---  ", "spaced-out"},
		{"///", "untitled"},
		{"", "untitled"},
		{"Already-Clean", "already-clean"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeTruncatesAtWordBoundary(t *testing.T) {
	long := strings.Repeat("word ", 60)
	got := Sanitize(long)
	if len(got) > maxSlugLength {
		t.Fatalf("slug too long: %d", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Fatalf("slug ends with dash: %q", got)
	}
}

func TestFallbackTitle(t *testing.T) {
	if got := FallbackTitle("my-great-video"); got != "My Great Video" {
		t.Fatalf("FallbackTitle = %q", got)
	}
	if got := FallbackTitle(""); got != "Untitled" {
		t.Fatalf("FallbackTitle empty = %q", got)
	}
}

func TestEnsurePathRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	if _, err := EnsurePath(dir, "../outside.md"); err == nil {
		t.Fatal("expected escape rejection")
	}
	path, err := EnsurePath(dir, "inside.md")
	if err != nil {
		t.Fatalf("EnsurePath failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("unexpected path: %s", path)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{5025, "1h 23m 45s"},
		{125, "2m 5s"},
		{59, "59s"},
		{0, "0s"},
		{3600, "1h"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func fixedWriter(dir string) *Writer {
	w := NewWriter(dir)
	w.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	return w
}

func TestSaveTranscript(t *testing.T) {
	dir := t.TempDir()
	w := fixedWriter(dir)
	meta := Meta{
		Title:           "My Talk",
		Author:          "Ada",
		UploadDate:      "20250110",
		URL:             "https://youtu.be/abc",
		DurationSeconds: 125,
		Description:     strings.Repeat("x", 600),
	}
	base := w.FilenameBase(meta.Title)
	if base != "2025-03-14 my-talk" {
		t.Fatalf("FilenameBase = %q", base)
	}

	path, err := w.SaveTranscript(meta, "[00:00:00] hello", base)
	if err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "# My Talk") || !strings.Contains(content, "**Duration**: 2m 5s") {
		t.Fatalf("unexpected content:\n%s", content)
	}
	if !strings.Contains(content, strings.Repeat("x", 500)+"...") {
		t.Fatal("description not truncated with ellipsis")
	}
	if strings.Contains(content, strings.Repeat("x", 501)) {
		t.Fatal("description exceeded truncate length")
	}
	if filepath.Base(filepath.Dir(path)) != "transcripts" {
		t.Fatalf("transcript not under transcripts dir: %s", path)
	}
}

func TestSaveSummary(t *testing.T) {
	dir := t.TempDir()
	w := fixedWriter(dir)
	meta := Meta{Title: "My Talk", Author: "Ada", UploadDate: "20250110"}

	path, err := w.SaveSummary(meta, "## Key Points\n- one", "2025-03-14 my-talk")
	if err != nil {
		t.Fatalf("SaveSummary failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "# My Talk - Summary") {
		t.Fatalf("missing title:\n%s", content)
	}
	if !strings.Contains(content, "**Processed**: 2025-03-14") {
		t.Fatalf("missing processed date:\n%s", content)
	}
	if filepath.Base(filepath.Dir(path)) != "summaries" {
		t.Fatalf("summary not under summaries dir: %s", path)
	}
}

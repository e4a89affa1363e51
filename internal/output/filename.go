package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxSlugLength caps sanitized titles so the full filename stays under
// typical filesystem limits.
const maxSlugLength = 200

var (
	slugStripPattern    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapsePattern = regexp.MustCompile(`[-\s]+`)
)

// Sanitize turns a video title into a filesystem-safe slug.
func Sanitize(title string) string {
	slug := strings.ToLower(title)
	slug = slugStripPattern.ReplaceAllString(slug, "")
	slug = slugCollapsePattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		if idx := strings.LastIndex(slug, "-"); idx > 0 {
			slug = slug[:idx]
		}
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

// FallbackTitle derives a display title from a slug or video id when no
// real title is available.
func FallbackTitle(slug string) string {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(slug, "-", " "), "_", " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "Untitled"
	}
	return cases.Title(language.English).String(cleaned)
}

// EnsurePath resolves filename inside baseDir, creating baseDir if
// needed. It rejects names that would escape the directory.
func EnsurePath(baseDir, filename string) (string, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("output path: resolve base: %w", err)
	}
	target := filepath.Clean(filepath.Join(absBase, filename))
	if target != absBase && !strings.HasPrefix(target, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("output path: %q escapes output directory", filename)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("output path: ensure dir: %w", err)
	}
	return target, nil
}

// FormatDuration renders seconds as a human-readable duration such as
// "1h 23m 45s".
func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

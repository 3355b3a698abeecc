package generation

import (
	"regexp"
	"strings"
)

var (
	numberingRe = regexp.MustCompile(`^\d+\.\s*`)
	bulletRe    = regexp.MustCompile(`^[-*•]\s*`)
	breakingRe  = regexp.MustCompile(`(?i)^BREAKING:\s*`)
)

// Sanitize normalizes raw model output into a single postable line: it trims
// whitespace, strips leading list markers and a redundant "BREAKING:" prefix,
// keeps only the first line, and truncates anything over maxLen to
// maxLen-3 runes plus an ellipsis. Returns "" when nothing survives.
func Sanitize(raw string, maxLen int) string {
	cleaned := strings.TrimSpace(raw)

	cleaned = numberingRe.ReplaceAllString(cleaned, "")
	cleaned = bulletRe.ReplaceAllString(cleaned, "")
	cleaned = breakingRe.ReplaceAllString(cleaned, "")

	if i := strings.IndexByte(cleaned, '\n'); i >= 0 {
		cleaned = cleaned[:i]
	}
	cleaned = strings.TrimSpace(cleaned)

	// Rune-based so multibyte text is never split mid-character.
	runes := []rune(cleaned)
	if len(runes) > maxLen {
		cleaned = string(runes[:maxLen-3]) + "..."
	}
	return cleaned
}

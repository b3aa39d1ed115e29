package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

var whitespace = regexp.MustCompile(`\s+`)

// CollapseWhitespace squeezes runs of whitespace into one space and trims the result.
func CollapseWhitespace(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(input, " "))
}

// RuneLen reports the length of s in characters rather than bytes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate returns at most max characters of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// Preview shortens a title for log output. Width is measured in terminal
// cells so that Hangul, which renders two cells wide, stays readable.
func Preview(s string, width int) string {
	return runewidth.Truncate(CollapseWhitespace(s), width, "...")
}

// BuildDocumentID hashes the article URL to form a deterministic ID.
func BuildDocumentID(url string) string {
	if url == "" {
		return ""
	}
	s := sha1.Sum([]byte(url))
	return hex.EncodeToString(s[:])
}

package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/owldoor/door-news/internal/processing"
)

const (
	// FallbackDate marks an article whose publication time could not be read.
	FallbackDate = "최근"
	// FallbackSource labels an article whose publisher could not be derived.
	FallbackSource = "뉴스"
)

var (
	relativeTime = regexp.MustCompile(`\d+(?:시간|분|일|주)\s*전`)
	viaSuffix    = regexp.MustCompile(`네이버뉴스`)
)

// NormalizeSource strips relative-time fragments and the search engine's
// "via" marker from a scraped publisher label.
func NormalizeSource(raw string) string {
	if raw == "" {
		return ""
	}
	s := relativeTime.ReplaceAllString(raw, "")
	s = viaSuffix.ReplaceAllString(s, "")
	return processing.CollapseWhitespace(s)
}

// SourceFromURL derives a publisher label from the article host,
// e.g. https://www.mt.co.kr/... -> "mt".
func SourceFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return FallbackSource
	}
	host := u.Hostname()
	if host == "" {
		return FallbackSource
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "view.")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return FallbackSource
	}
	return label
}

// NormalizeDate keeps only the relative-time part of a scraped date
// ("3시간 전"), or FallbackDate when there is none.
func NormalizeDate(raw string) string {
	if m := relativeTime.FindString(raw); m != "" {
		return m
	}
	return FallbackDate
}

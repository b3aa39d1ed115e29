// Package dedupe collapses duplicate articles inside one crawl cycle and
// remembers indexed articles across messages in the worker.
package dedupe

import (
	"github.com/owldoor/door-news/internal/models"
	"github.com/owldoor/door-news/internal/processing"
)

const (
	titleKeyLen    = 30
	minTitleLength = 20
)

// ByTitlePrefix keeps the first article per 30-character title prefix and
// drops titles of 20 characters or fewer. It runs per keyword, before any
// image backfill is spent on near-duplicates.
func ByTitlePrefix(articles []models.Article) []models.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if processing.RuneLen(a.Title) <= minTitleLength {
			continue
		}
		key := processing.Truncate(a.Title, titleKeyLen)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// ByURL keeps the first article per exact URL across all keywords. Fields of
// later duplicates are discarded, not merged. Articles without a URL are dropped.
func ByURL(articles []models.Article) []models.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

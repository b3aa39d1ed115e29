// Package backfill recovers a representative image for articles whose
// search-result entry had no thumbnail by visiting the article itself.
package backfill

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/owldoor/door-news/internal/browser"
	"github.com/owldoor/door-news/internal/models"
	"github.com/owldoor/door-news/internal/processing"
)

// DefaultSelectors are tried in order; article containers come first,
// generic image hints last.
var DefaultSelectors = []string{
	"article img",
	".article_view img",
	".article-body img",
	".news_body img",
	".article_body img",
	"#articleBody img",
	".view_con img",
	".article-view img",
	"figure img",
	".photo img",
	".image img",
	`img[src*="image"]`,
	`img[src*="photo"]`,
}

var rejectedFragments = []string{"logo", "icon", "blank"}

// Options bound the backfill work done per keyword.
type Options struct {
	// Limit is the number of leading articles eligible for a fetch.
	Limit     int
	Open      browser.OpenOptions
	Selectors []string
}

// Backfiller fetches article pages to fill missing thumbnails.
type Backfiller struct {
	opts Options
	log  *slog.Logger
}

// New creates a Backfiller. A zero Limit means 5.
func New(opts Options, log *slog.Logger) *Backfiller {
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if len(opts.Selectors) == 0 {
		opts.Selectors = DefaultSelectors
	}
	if opts.Open.Timeout <= 0 {
		opts.Open.Timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Backfiller{opts: opts, log: log}
}

// Fill visits, one at a time, each of the first Limit articles that lacks a
// thumbnail. Failures are logged and leave the thumbnail empty. The input
// slice is not modified.
func (b *Backfiller) Fill(ctx context.Context, session browser.Session, articles []models.Article) []models.Article {
	out := make([]models.Article, len(articles))
	copy(out, articles)

	for i := 0; i < len(out) && i < b.opts.Limit; i++ {
		a := &out[i]
		if a.URL == "" || a.Thumbnail != "" {
			continue
		}

		doc, err := session.Open(ctx, a.URL, b.opts.Open)
		if err != nil {
			b.log.Warn("image backfill failed",
				slog.String("title", processing.Preview(a.Title, 40)),
				slog.String("url", a.URL),
				slog.Any("err", err),
			)
			continue
		}

		if img := MainImage(doc, b.opts.Selectors); img != "" {
			a.Thumbnail = img
			b.log.Info("image backfilled", slog.String("title", processing.Preview(a.Title, 60)))
		} else {
			b.log.Debug("no main image found", slog.String("url", a.URL))
		}
	}

	return out
}

// MainImage returns the first acceptable image among selectors. Only the
// first element matching each selector is considered.
func MainImage(doc *goquery.Document, selectors []string) string {
	if doc == nil {
		return ""
	}
	for _, sel := range selectors {
		img := doc.Find(sel).First()
		if img.Length() == 0 {
			continue
		}
		src := img.AttrOr("data-src", "")
		if src == "" {
			src = img.AttrOr("src", "")
		}
		if acceptable(src) {
			return src
		}
	}
	return ""
}

func acceptable(src string) bool {
	if !strings.HasPrefix(src, "http") {
		return false
	}
	for _, frag := range rejectedFragments {
		if strings.Contains(src, frag) {
			return false
		}
	}
	return true
}

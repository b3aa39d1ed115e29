// Package feed assembles the published article feed and replaces the feed
// file atomically.
package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/owldoor/door-news/internal/models"
)

// Options configure the published document.
type Options struct {
	Path             string
	MaxArticles      int
	DisplayCount     int
	DefaultThumbnail string
}

// Publisher builds and persists the FeedDocument.
type Publisher struct {
	opts Options
	now  func() time.Time
	// wrap decorates the file writer; tests use it to fail mid-write.
	wrap func(io.Writer) io.Writer
}

// NewPublisher creates a Publisher writing to opts.Path.
func NewPublisher(opts Options) *Publisher {
	return &Publisher{opts: opts, now: time.Now}
}

// Build applies the thumbnail default, truncates to MaxArticles and stamps
// the document with now. The input slice is not modified.
func (p *Publisher) Build(articles []models.Article, now time.Time) models.FeedDocument {
	n := len(articles)
	if p.opts.MaxArticles >= 0 && n > p.opts.MaxArticles {
		n = p.opts.MaxArticles
	}

	out := make([]models.Article, n)
	for i := 0; i < n; i++ {
		a := articles[i]
		if !usableThumbnail(a.Thumbnail) {
			a.Thumbnail = p.opts.DefaultThumbnail
		}
		out[i] = a
	}

	return models.FeedDocument{
		LastUpdated:    now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		LastUpdatedKST: FormatKST(now),
		TotalCount:     len(out),
		DisplayCount:   p.opts.DisplayCount,
		Articles:       out,
	}
}

// Publish builds the document and replaces the feed file. On error the
// previous file is left as it was.
func (p *Publisher) Publish(articles []models.Article) (models.FeedDocument, error) {
	doc := p.Build(articles, p.now())
	if err := p.Write(doc); err != nil {
		return models.FeedDocument{}, err
	}
	return doc, nil
}

// Write encodes doc as indented UTF-8 JSON into a pending file next to the
// target and renames it into place.
func (p *Publisher) Write(doc models.FeedDocument) error {
	if dir := filepath.Dir(p.opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create feed dir: %w", err)
		}
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}

	pending, err := renameio.NewPendingFile(p.opts.Path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("open pending feed file: %w", err)
	}
	defer pending.Cleanup()

	var w io.Writer = pending
	if p.wrap != nil {
		w = p.wrap(w)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace feed file: %w", err)
	}
	return nil
}

func usableThumbnail(src string) bool {
	return src != "" && !strings.Contains(src, "data:image") && !strings.Contains(src, "blank")
}

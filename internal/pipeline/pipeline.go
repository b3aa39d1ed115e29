// Package pipeline runs one crawl cycle: search every keyword in turn,
// extract and enrich the hits, then publish the merged feed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/owldoor/door-news/internal/browser"
	"github.com/owldoor/door-news/internal/dedupe"
	"github.com/owldoor/door-news/internal/extract"
	"github.com/owldoor/door-news/internal/models"
)

// ErrNoKeywords is returned when a cycle has nothing to search for.
var ErrNoKeywords = errors.New("no search keywords configured")

// DefaultSearchURL is the Naver news search, newest first.
const DefaultSearchURL = "https://search.naver.com/search.naver?where=news&query={query}&sort=1&sm=tab_smr"

// Config drives the keyword loop.
type Config struct {
	Keywords []string
	// SearchURL contains a {query} placeholder for the escaped keyword.
	SearchURL    string
	Search       browser.OpenOptions
	KeywordDelay time.Duration
}

// FeedPublisher persists the merged article list.
type FeedPublisher interface {
	Publish(articles []models.Article) (models.FeedDocument, error)
}

// Notifier announces a published feed. Failures never fail the cycle.
type Notifier interface {
	PublishArticles(ctx context.Context, cycleID string, at time.Time, articles []models.Article) error
}

// Backfiller fills missing thumbnails for a keyword's articles.
type Backfiller interface {
	Fill(ctx context.Context, session browser.Session, articles []models.Article) []models.Article
}

// Pipeline wires the cycle stages together.
type Pipeline struct {
	cfg       Config
	launcher  browser.Launcher
	extractor *extract.Extractor
	backfill  Backfiller
	publisher FeedPublisher
	notifier  Notifier
	log       *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config, launcher browser.Launcher, extractor *extract.Extractor, backfill Backfiller, publisher FeedPublisher, log *slog.Logger) *Pipeline {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		cfg:       cfg,
		launcher:  launcher,
		extractor: extractor,
		backfill:  backfill,
		publisher: publisher,
		log:       log,
	}
}

// WithNotifier sets the optional feed notifier.
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

// RunCycle collects every keyword, removes cross-keyword duplicates by URL
// and publishes the feed. Only a browser launch failure or a publish
// failure is returned; per-keyword problems are logged and skipped.
func (p *Pipeline) RunCycle(ctx context.Context) (models.FeedDocument, error) {
	if len(p.cfg.Keywords) == 0 {
		return models.FeedDocument{}, ErrNoKeywords
	}

	cycleID := uuid.NewString()
	log := p.log.With(slog.String("cycle_id", cycleID))
	started := time.Now()
	log.Info("crawl cycle started", slog.Int("keywords", len(p.cfg.Keywords)))

	collected, err := p.Collect(ctx, log)
	if err != nil {
		return models.FeedDocument{}, err
	}

	unique := dedupe.ByURL(collected)
	doc, err := p.publisher.Publish(unique)
	if err != nil {
		return models.FeedDocument{}, fmt.Errorf("publish feed: %w", err)
	}

	log.Info("crawl cycle completed",
		slog.Int("collected", len(collected)),
		slog.Int("unique", len(unique)),
		slog.Int("published", doc.TotalCount),
		slog.String("updated_kst", doc.LastUpdatedKST),
		slog.Duration("took", time.Since(started)),
	)

	if p.notifier != nil {
		if err := p.notifier.PublishArticles(ctx, cycleID, time.Now(), doc.Articles); err != nil {
			log.Warn("announce feed failed", slog.Any("err", err))
		}
	}

	return doc, nil
}

// Collect searches every keyword sequentially within one browser session and
// returns the accumulated articles in keyword order.
func (p *Pipeline) Collect(ctx context.Context, log *slog.Logger) ([]models.Article, error) {
	session, err := p.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("close browser", slog.Any("err", err))
		}
	}()

	var acc []models.Article
	for i, keyword := range p.cfg.Keywords {
		if i > 0 {
			if err := browser.Wait(ctx, p.cfg.KeywordDelay); err != nil {
				return acc, err
			}
		}

		kwLog := log.With(slog.String("keyword", keyword))
		articles, err := p.CollectKeyword(ctx, session, keyword)
		if err != nil {
			kwLog.Warn("keyword skipped", slog.Any("err", err))
			continue
		}
		kwLog.Info("keyword collected", slog.Int("articles", len(articles)))
		acc = append(acc, articles...)
	}
	return acc, nil
}

// CollectKeyword runs search, extraction, title dedupe and image backfill
// for one keyword and tags the survivors with it.
func (p *Pipeline) CollectKeyword(ctx context.Context, session browser.Session, keyword string) (articles []models.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			articles, err = nil, fmt.Errorf("extract %q: %v", keyword, r)
		}
	}()

	doc, err := session.Open(ctx, p.SearchURL(keyword), p.cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}

	candidates := p.extractor.Extract(extract.FromDocument(doc))
	unique := dedupe.ByTitlePrefix(candidates)
	if p.backfill != nil {
		unique = p.backfill.Fill(ctx, session, unique)
	}

	for i := range unique {
		unique[i].Keyword = keyword
	}
	return unique, nil
}

// SearchURL renders the search page URL for keyword.
func (p *Pipeline) SearchURL(keyword string) string {
	return strings.ReplaceAll(p.cfg.SearchURL, "{query}", url.QueryEscape(keyword))
}

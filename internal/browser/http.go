package browser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// HTTPLauncher fetches pages with a colly collector instead of a browser.
type HTTPLauncher struct {
	opts Options
}

// Launch builds a collector that may revisit URLs across cycles.
func (l *HTTPLauncher) Launch(ctx context.Context) (Session, error) {
	c := colly.NewCollector(
		colly.UserAgent(l.opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.DetectCharset = true

	s := &httpSession{collector: c}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", l.opts.Locale)
	})
	c.OnResponse(func(r *colly.Response) {
		s.body = r.Body
	})
	return s, nil
}

type httpSession struct {
	collector *colly.Collector
	body      []byte
}

func (s *httpSession) Open(ctx context.Context, rawURL string, opts OpenOptions) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.body = nil
	s.collector.SetRequestTimeout(opts.timeout())
	if err := s.collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	if len(s.body) == 0 {
		return nil, ErrEmptyPage
	}

	if err := Wait(ctx, opts.Settle); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(s.body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}

func (s *httpSession) Close() error {
	s.collector.Wait()
	return nil
}

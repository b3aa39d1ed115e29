package backfill_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/owldoor/door-news/internal/backfill"
	"github.com/owldoor/door-news/internal/browser"
	"github.com/owldoor/door-news/internal/models"
)

type stubSession struct {
	pages  map[string]string
	opened []string
}

func (s *stubSession) Open(_ context.Context, rawURL string, _ browser.OpenOptions) (*goquery.Document, error) {
	s.opened = append(s.opened, rawURL)
	html, ok := s.pages[rawURL]
	if !ok {
		return nil, errors.New("navigation timeout")
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *stubSession) Close() error { return nil }

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestMainImageSelectorPriority(t *testing.T) {
	html := `<html><body>
<figure><img src="https://img.example.com/figure.jpg"></figure>
<div class="article_view"><img data-src="https://img.example.com/lazy.jpg" src="https://img.example.com/eager.jpg"></div>
</body></html>`

	got := backfill.MainImage(doc(t, html), backfill.DefaultSelectors)
	require.Equal(t, "https://img.example.com/lazy.jpg", got)
}

func TestMainImageSkipsLogosAndRelativeSources(t *testing.T) {
	html := `<html><body>
<article><img src="https://img.example.com/site_logo.png"></article>
<div class="article-body"><img src="/relative/photo.jpg"></div>
<div class="photo"><img src="https://img.example.com/news/2026/door.jpg"></div>
</body></html>`

	got := backfill.MainImage(doc(t, html), backfill.DefaultSelectors)
	require.Equal(t, "https://img.example.com/news/2026/door.jpg", got)
}

func TestMainImageConsidersOnlyFirstMatchPerSelector(t *testing.T) {
	html := `<html><body><article>
<img src="https://img.example.com/blank.gif">
<img src="https://img.example.com/real.jpg">
</article></body></html>`

	require.Empty(t, backfill.MainImage(doc(t, html), []string{"article img"}))
}

func TestMainImageNoMatch(t *testing.T) {
	require.Empty(t, backfill.MainImage(doc(t, `<html><body><p>텍스트만</p></body></html>`), backfill.DefaultSelectors))
	require.Empty(t, backfill.MainImage(nil, backfill.DefaultSelectors))
}

func TestFillLimitAndFailures(t *testing.T) {
	session := &stubSession{pages: map[string]string{
		"https://a.example.com/1": `<html><body><article><img src="https://img.example.com/1.jpg"></article></body></html>`,
		"https://a.example.com/3": `<html><body><p>이미지 없음</p></body></html>`,
		"https://a.example.com/6": `<html><body><article><img src="https://img.example.com/6.jpg"></article></body></html>`,
	}}

	in := []models.Article{
		{URL: "https://a.example.com/1"},
		{URL: "https://a.example.com/2"},
		{URL: "https://a.example.com/3"},
		{URL: "https://a.example.com/4", Thumbnail: "https://img.example.com/existing.jpg"},
		{URL: "https://a.example.com/5"},
		{URL: "https://a.example.com/6"},
	}

	b := backfill.New(backfill.Options{Limit: 5}, nil)
	out := b.Fill(context.Background(), session, in)

	require.Equal(t, []string{
		"https://a.example.com/1",
		"https://a.example.com/2",
		"https://a.example.com/3",
		"https://a.example.com/5",
	}, session.opened)

	require.Equal(t, "https://img.example.com/1.jpg", out[0].Thumbnail)
	require.Empty(t, out[1].Thumbnail)
	require.Empty(t, out[2].Thumbnail)
	require.Equal(t, "https://img.example.com/existing.jpg", out[3].Thumbnail)
	require.Empty(t, out[5].Thumbnail)

	require.Empty(t, in[0].Thumbnail)
}

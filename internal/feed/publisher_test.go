package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/owldoor/door-news/internal/models"
)

const placeholder = "https://via.placeholder.com/400x300/496039/ffffff?text=DoorExpert+News"

func testArticles(n int) []models.Article {
	out := make([]models.Article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Article{
			Title:     fmt.Sprintf("현관문 관련 기사 제목이 충분히 길게 작성된 %d번째 기사", i),
			URL:       fmt.Sprintf("https://news.example.com/%d", i),
			Thumbnail: fmt.Sprintf("https://img.example.com/%d.jpg", i),
			Keyword:   "현관문",
		})
	}
	return out
}

func TestBuildDefaultsThumbnails(t *testing.T) {
	p := NewPublisher(Options{MaxArticles: 50, DisplayCount: 9, DefaultThumbnail: placeholder})
	in := []models.Article{
		{URL: "https://a.example.com", Thumbnail: ""},
		{URL: "https://b.example.com", Thumbnail: "data:image/png;base64,AAAA"},
		{URL: "https://c.example.com", Thumbnail: "https://ssl.pstatic.net/static/blank.gif"},
		{URL: "https://d.example.com", Thumbnail: "https://img.example.com/real.jpg"},
	}

	doc := p.Build(in, time.Now())

	require.Equal(t, placeholder, doc.Articles[0].Thumbnail)
	require.Equal(t, placeholder, doc.Articles[1].Thumbnail)
	require.Equal(t, placeholder, doc.Articles[2].Thumbnail)
	require.Equal(t, "https://img.example.com/real.jpg", doc.Articles[3].Thumbnail)
	require.Empty(t, in[0].Thumbnail)
}

func TestBuildTruncatesAndStamps(t *testing.T) {
	p := NewPublisher(Options{MaxArticles: 50, DisplayCount: 9, DefaultThumbnail: placeholder})
	now := time.Date(2026, 10, 18, 6, 4, 5, 123_000_000, time.UTC)

	doc := p.Build(testArticles(60), now)

	require.Len(t, doc.Articles, 50)
	require.Equal(t, 50, doc.TotalCount)
	require.Equal(t, 9, doc.DisplayCount)
	require.Equal(t, "2026-10-18T06:04:05.123Z", doc.LastUpdated)
	require.Equal(t, "2026. 10. 18. 오후 3:04:05", doc.LastUpdatedKST)
	require.Equal(t, "https://news.example.com/0", doc.Articles[0].URL)
}

func TestBuildEmpty(t *testing.T) {
	p := NewPublisher(Options{MaxArticles: 50, DefaultThumbnail: placeholder})
	doc := p.Build(nil, time.Now())

	require.NotNil(t, doc.Articles)
	require.Zero(t, doc.TotalCount)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.Contains(t, string(data), `"articles":[]`)
}

func TestFormatKST(t *testing.T) {
	require.Equal(t, "2026. 1. 2. 오전 12:00:07", FormatKST(time.Date(2026, 1, 1, 15, 0, 7, 0, time.UTC)))
	require.Equal(t, "2026. 1. 2. 오후 12:30:00", FormatKST(time.Date(2026, 1, 2, 3, 30, 0, 0, time.UTC)))
}

func TestPublishWritesJSONContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "news-data.json")
	p := NewPublisher(Options{Path: path, MaxArticles: 50, DisplayCount: 9, DefaultThumbnail: placeholder})

	_, err := p.Publish(testArticles(3))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"lastUpdated", "lastUpdatedKST", "totalCount", "displayCount", "articles"} {
		require.Contains(t, raw, key)
	}

	articles := raw["articles"].([]any)
	require.Len(t, articles, 3)
	first := articles[0].(map[string]any)
	for _, key := range []string{"title", "url", "description", "source", "date", "thumbnail", "keyword"} {
		require.Contains(t, first, key)
	}
}

type failingWriter struct {
	w io.Writer
}

func (f failingWriter) Write(b []byte) (int, error) {
	n, _ := f.w.Write(b[:len(b)/2])
	return n, errors.New("disk full")
}

func TestPublishFailureKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news-data.json")
	p := NewPublisher(Options{Path: path, MaxArticles: 50, DisplayCount: 9, DefaultThumbnail: placeholder})

	_, err := p.Publish(testArticles(2))
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	p.wrap = func(w io.Writer) io.Writer { return failingWriter{w: w} }
	_, err = p.Publish(testArticles(5))
	require.Error(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

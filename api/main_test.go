package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/owldoor/door-news/internal/config"
	"github.com/owldoor/door-news/internal/elasticsearch"
	"github.com/owldoor/door-news/internal/logger"
	"github.com/owldoor/door-news/internal/models"
)

type stubStore struct {
	healthErr error
	searchErr error
	params    elasticsearch.SearchParams
	result    *elasticsearch.SearchResult
}

func (s *stubStore) Health(context.Context) error {
	return s.healthErr
}

func (s *stubStore) SearchArticles(_ context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	s.params = params
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.result, nil
}

func newTestServer(t *testing.T, store *stubStore) (*server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "news-data.json")
	return &server{
		log:   logger.Discard(),
		cfg:   &config.API{FeedPath: path, DefaultPage: 20, MaxPage: 100},
		store: store,
	}, path
}

func serve(s *server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestFeedMissingReturnsUnavailable(t *testing.T) {
	s, _ := newTestServer(t, &stubStore{})

	rec := serve(s, "/feed")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, feedUnavailable, body.Error)
}

func TestFeedServedVerbatim(t *testing.T) {
	s, path := newTestServer(t, &stubStore{})
	doc := models.FeedDocument{
		LastUpdated:    "2026-10-18T06:04:05.000Z",
		LastUpdatedKST: "2026. 10. 18. 오후 3:04:05",
		TotalCount:     1,
		DisplayCount:   9,
		Articles: []models.Article{{
			Title: "자동중문 시장 성장세가 이어지고 있다는 업계 분석",
			URL:   "https://news.example.com/1",
		}},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rec := serve(s, "/feed")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, data, rec.Body.Bytes())
}

func TestFeedInvalidJSONReturnsUnavailable(t *testing.T) {
	s, path := newTestServer(t, &stubStore{})
	require.NoError(t, os.WriteFile(path, []byte(`{"articles": [`), 0o644))

	rec := serve(s, "/feed")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchPassesFilters(t *testing.T) {
	store := &stubStore{result: &elasticsearch.SearchResult{
		Total: 1,
		Items: []models.ArticleDocument{{ID: "a", Title: "방화문 점검"}},
	}}
	s, _ := newTestServer(t, store)

	rec := serve(s, "/articles?q=%EB%B0%A9%ED%99%94%EB%AC%B8&keyword=%EB%B0%A9%ED%99%94%EB%AC%B8&from=-3&size=500&sort=indexed_at:asc")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "방화문", store.params.Query)
	require.Equal(t, "방화문", store.params.Keyword)
	require.Equal(t, 0, store.params.From)
	require.Equal(t, 100, store.params.Size)
	require.Equal(t, "indexed_at:asc", store.params.Sort)

	var body elasticsearch.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.EqualValues(t, 1, body.Total)
	require.Equal(t, "a", body.Items[0].ID)
}

func TestSearchFailure(t *testing.T) {
	s, _ := newTestServer(t, &stubStore{searchErr: errors.New("search failed")})

	rec := serve(s, "/articles")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &stubStore{})
	rec := serve(s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, false, body["feed"])

	down, _ := newTestServer(t, &stubStore{healthErr: errors.New("no cluster")})
	require.Equal(t, http.StatusServiceUnavailable, serve(down, "/health").Code)
}

func TestClampInt(t *testing.T) {
	require.Equal(t, 20, clampInt("", 20, 100))
	require.Equal(t, 20, clampInt("abc", 20, 100))
	require.Equal(t, 20, clampInt("0", 20, 100))
	require.Equal(t, 50, clampInt("50", 20, 100))
	require.Equal(t, 100, clampInt("1000", 20, 100))
}

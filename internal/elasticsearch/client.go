package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/owldoor/door-news/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	defaultSort     = "indexed_at:desc"
)

// Client wraps go-elasticsearch with the article index helpers.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
	now   func() time.Time
}

// SearchParams narrow the article search query.
type SearchParams struct {
	Query   string
	Keyword string
	Source  string
	From    int
	Size    int
	Sort    string
}

// SearchResult bundles hits and total count.
type SearchResult struct {
	Total int64                    `json:"total"`
	Items []models.ArticleDocument `json:"items"`
}

// articleMapping keeps keyword and source as exact-match fields so the
// API filters do not go through the analyzer.
var articleMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"title":       map[string]any{"type": "text"},
			"url":         map[string]any{"type": "keyword"},
			"description": map[string]any{"type": "text"},
			"source":      map[string]any{"type": "keyword"},
			"date":        map[string]any{"type": "keyword", "index": false},
			"thumbnail":   map[string]any{"type": "keyword", "index": false},
			"keyword":     map[string]any{"type": "keyword"},
			"cycle_id":    map[string]any{"type": "keyword"},
			"indexed_at":  map[string]any{"type": "date"},
		},
	},
}

// New instantiates the Elasticsearch client.
func New(addr, index string, logger *slog.Logger) (*Client, error) {
	return NewWithConfig(elasticsearch.Config{Addresses: []string{addr}}, index, logger)
}

// NewWithConfig builds a client from a full go-elasticsearch config.
func NewWithConfig(cfg elasticsearch.Config, index string, logger *slog.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, index: index, log: logger, now: time.Now}, nil
}

// Index reports the index name the client writes to.
func (c *Client) Index() string {
	return c.index
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// EnsureIndex creates the article index with its mapping when missing.
func (c *Client) EnsureIndex(ctx context.Context) error {
	exists, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	exists.Body.Close()

	switch exists.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index failed: %s", exists.Status())
	}

	payload, err := json.Marshal(articleMapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	res, err := c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// Another instance may have won the race.
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index failed: %s", strings.TrimSpace(string(body)))
	}

	c.log.Info("created index", slog.String("index", c.index))
	return nil
}

// IndexArticle writes an article document, replacing any previous version
// stored under the same ID.
func (c *Client) IndexArticle(ctx context.Context, doc models.ArticleDocument) error {
	if doc.ID == "" {
		return fmt.Errorf("index article: empty document id")
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index doc failed: %s", strings.TrimSpace(string(body)))
	}

	return nil
}

// SearchArticles executes a bool query with optional keyword and source filters.
func (c *Client) SearchArticles(ctx context.Context, params SearchParams) (*SearchResult, error) {
	payload, err := json.Marshal(BuildSearchBody(params))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.ArticleDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]models.ArticleDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}

	return &SearchResult{
		Total: parsed.Hits.Total.Value,
		Items: items,
	}, nil
}

// BuildSearchBody renders params into an Elasticsearch query body.
func BuildSearchBody(params SearchParams) map[string]any {
	if params.Size <= 0 {
		params.Size = defaultPageSize
	}
	if params.Size > maxPageSize {
		params.Size = maxPageSize
	}
	if params.From < 0 {
		params.From = 0
	}

	var must, filters []map[string]any

	if q := strings.TrimSpace(params.Query); q != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^2", "description"},
			},
		})
	}

	if params.Keyword != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"keyword": params.Keyword},
		})
	}

	if params.Source != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"source": params.Source},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(must) == 0 && len(filters) == 0 {
		boolQuery["must"] = []map[string]any{
			{"match_all": map[string]any{}},
		}
	}

	field, order := parseSort(params.Sort)

	return map[string]any{
		"from":             params.From,
		"size":             params.Size,
		"track_total_hits": true,
		"query": map[string]any{
			"bool": boolQuery,
		},
		"sort": []map[string]any{
			{field: map[string]any{"order": order}},
		},
	}
}

func parseSort(raw string) (string, string) {
	if raw == "" {
		raw = defaultSort
	}
	field, order, _ := strings.Cut(raw, ":")
	if field == "" {
		field = "indexed_at"
	}
	order = strings.ToLower(order)
	if order != "asc" {
		order = "desc"
	}
	return field, order
}

// DeleteOlderThan removes articles indexed before now-maxAge using batched
// delete-by-query. It loops until a batch deletes fewer documents than batchSize.
func (c *Client) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	payload, err := json.Marshal(retentionQuery(c.now().Add(-maxAge)))
	if err != nil {
		return 0, fmt.Errorf("marshal delete body: %w", err)
	}

	var totalDeleted int64
	for {
		res, err := c.es.DeleteByQuery(
			[]string{c.index},
			bytes.NewReader(payload),
			c.es.DeleteByQuery.WithContext(ctx),
			c.es.DeleteByQuery.WithWaitForCompletion(true),
			c.es.DeleteByQuery.WithConflicts("proceed"),
			c.es.DeleteByQuery.WithScrollSize(batchSize),
			c.es.DeleteByQuery.WithMaxDocs(batchSize),
		)
		if err != nil {
			return totalDeleted, fmt.Errorf("delete by query: %w", err)
		}

		deleted, err := decodeDeleted(res)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted < int64(batchSize) {
			break
		}
	}

	return totalDeleted, nil
}

func retentionQuery(cutoff time.Time) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"indexed_at": map[string]any{
					"lte": cutoff.UTC().Format(time.RFC3339),
				},
			},
		},
	}
}

func decodeDeleted(res *esapi.Response) (int64, error) {
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("delete by query failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode delete response: %w", err)
	}
	return parsed.Deleted, nil
}

// Health reports whether the cluster answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data)))
	}
	return nil
}

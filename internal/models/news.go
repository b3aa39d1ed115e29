package models

import "time"

// Article is a single news hit harvested from a search-results page.
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Date        string `json:"date"`
	Thumbnail   string `json:"thumbnail"`
	Keyword     string `json:"keyword"`
}

// FeedDocument is the published artifact read by the display layer.
type FeedDocument struct {
	LastUpdated    string    `json:"lastUpdated"`
	LastUpdatedKST string    `json:"lastUpdatedKST"`
	TotalCount     int       `json:"totalCount"`
	DisplayCount   int       `json:"displayCount"`
	Articles       []Article `json:"articles"`
}

// ArticleEvent announces a published article on the event stream.
type ArticleEvent struct {
	Article
	CycleID     string    `json:"cycle_id"`
	PublishedAt time.Time `json:"published_at"`
}

// ArticleDocument represents the canonical structure stored in Elasticsearch.
type ArticleDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Date        string    `json:"date"`
	Thumbnail   string    `json:"thumbnail"`
	Keyword     string    `json:"keyword"`
	CycleID     string    `json:"cycle_id"`
	IndexedAt   time.Time `json:"indexed_at"`
}

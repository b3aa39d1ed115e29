package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultKeywords are the door and interior terms searched every cycle.
var DefaultKeywords = []string{
	"현관문", "도어 인테리어", "스마트도어락", "방화문", "단열문",
	"현관중문", "인테리어중문", "3연동중문", "슬라이드중문", "자동중문",
}

const (
	defaultSearchURL = "https://search.naver.com/search.naver?where=news&query={query}&sort=1&sm=tab_smr"
	defaultThumbnail = "https://via.placeholder.com/400x300/496039/ffffff?text=DoorExpert+News"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Common contains Elasticsearch parameters shared by the index-side services.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Crawler holds configuration for the scraping job.
type Crawler struct {
	Keywords         []string
	MaxArticles      int
	DisplayCount     int
	OutputFile       string
	DefaultThumbnail string
	Interval         time.Duration
	Cron             string
	SearchURL        string
	Renderer         string
	UserAgent        string
	ChromePath       string
	SearchTimeout    time.Duration
	SearchSettle     time.Duration
	ArticleTimeout   time.Duration
	ArticleSettle    time.Duration
	KeywordDelay     time.Duration
	BackfillLimit    int
	// KafkaBrokers is empty when article events are disabled.
	KafkaBrokers []string
	KafkaTopic   string
}

// Worker holds configuration for the Kafka -> Elasticsearch indexer.
type Worker struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr    string
	FeedPath    string
	DefaultPage int
	MaxPage     int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// LoadCrawler builds a Crawler config from environment variables.
func LoadCrawler() (*Crawler, error) {
	c := &Crawler{
		Keywords:         slices.Clone(DefaultKeywords),
		MaxArticles:      getInt("CRAWLER_MAX_ARTICLES", 50),
		DisplayCount:     getInt("CRAWLER_DISPLAY_COUNT", 9),
		OutputFile:       getEnv("CRAWLER_OUTPUT_FILE", "news-data.json"),
		DefaultThumbnail: getEnv("CRAWLER_DEFAULT_THUMBNAIL", defaultThumbnail),
		Interval:         getDuration("CRAWLER_INTERVAL", "1h"),
		Cron:             strings.TrimSpace(os.Getenv("CRAWLER_CRON")),
		SearchURL:        getEnv("CRAWLER_SEARCH_URL", defaultSearchURL),
		Renderer:         strings.ToLower(getEnv("CRAWLER_RENDERER", "chrome")),
		UserAgent:        getEnv("CRAWLER_USER_AGENT", defaultUserAgent),
		ChromePath:       os.Getenv("CRAWLER_CHROME_PATH"),
		SearchTimeout:    getDuration("CRAWLER_SEARCH_TIMEOUT", "30s"),
		SearchSettle:     getDuration("CRAWLER_SEARCH_SETTLE", "3s"),
		ArticleTimeout:   getDuration("CRAWLER_ARTICLE_TIMEOUT", "15s"),
		ArticleSettle:    getDuration("CRAWLER_ARTICLE_SETTLE", "1500ms"),
		KeywordDelay:     getDuration("CRAWLER_KEYWORD_DELAY", "1500ms"),
		BackfillLimit:    getInt("CRAWLER_BACKFILL_LIMIT", 5),
		KafkaBrokers:     splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "news_articles"),
	}

	if raw, ok := os.LookupEnv("CRAWLER_KEYWORDS"); ok && strings.TrimSpace(raw) != "" {
		c.Keywords = splitAndTrim(raw)
	}
	if path := os.Getenv("CRAWLER_KEYWORDS_FILE"); path != "" {
		keywords, err := LoadKeywordsFile(path)
		if err != nil {
			return nil, err
		}
		c.Keywords = keywords
	}

	if len(c.Keywords) == 0 {
		return nil, fmt.Errorf("CRAWLER_KEYWORDS must contain at least one keyword")
	}
	if c.MaxArticles <= 0 {
		return nil, fmt.Errorf("CRAWLER_MAX_ARTICLES must be positive")
	}
	if c.DisplayCount < 0 {
		return nil, fmt.Errorf("CRAWLER_DISPLAY_COUNT cannot be negative")
	}
	if c.OutputFile == "" {
		return nil, fmt.Errorf("CRAWLER_OUTPUT_FILE must be set")
	}
	if !strings.HasPrefix(c.DefaultThumbnail, "http") {
		return nil, fmt.Errorf("CRAWLER_DEFAULT_THUMBNAIL must be an absolute URL")
	}
	if !strings.Contains(c.SearchURL, "{query}") {
		return nil, fmt.Errorf("CRAWLER_SEARCH_URL must contain a {query} placeholder")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("CRAWLER_INTERVAL must be positive")
	}
	if c.BackfillLimit <= 0 {
		return nil, fmt.Errorf("CRAWLER_BACKFILL_LIMIT must be positive")
	}

	return c, nil
}

// LoadKeywordsFile reads keywords from a YAML file holding either a plain
// list or a mapping with a "keywords" list.
func LoadKeywordsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err != nil {
		var doc struct {
			Keywords []string `yaml:"keywords"`
		}
		if derr := yaml.Unmarshal(data, &doc); derr != nil {
			return nil, fmt.Errorf("parse keywords file: %w", errors.Join(err, derr))
		}
		list = doc.Keywords
	}

	out := make([]string, 0, len(list))
	for _, kw := range list {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("keywords file %s has no keywords", path)
	}
	return out, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "news_articles"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "news-indexer"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:      loadCommon(),
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		FeedPath:    getEnv("FEED_PATH", "news-data.json"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "168h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "door-news"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

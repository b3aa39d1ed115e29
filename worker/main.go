package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/owldoor/door-news/internal/config"
	"github.com/owldoor/door-news/internal/dedupe"
	"github.com/owldoor/door-news/internal/elasticsearch"
	"github.com/owldoor/door-news/internal/logger"
	"github.com/owldoor/door-news/internal/models"
	"github.com/owldoor/door-news/internal/processing"
)

const dlqAttempts = 5

var (
	errMissingURL   = errors.New("article event without url")
	errMissingTitle = errors.New("article event without title")
)

type articleIndexer interface {
	IndexArticle(ctx context.Context, doc models.ArticleDocument) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	_ = godotenv.Load()

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := esClient.EnsureIndex(ctx); err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := &kafka.Writer{
		Addr:        kafka.TCP(cfg.KafkaBrokers...),
		Topic:       dlqTopic,
		MaxAttempts: 3,
	}
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, cache, msg, time.Now()); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			sent, dlqErr := sendToDLQ(ctx, log, dlqWriter, msg, err, time.Second)
			if dlqErr != nil {
				log.Info("context canceled during DLQ retry")
				return
			}
			// An uncommitted message is redelivered after restart.
			if !sent {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage indexes one article event. Events already indexed within
// the dedupe TTL are acknowledged without touching Elasticsearch.
func processMessage(ctx context.Context, log *slog.Logger, idx articleIndexer, cache *dedupe.Cache, msg kafka.Message, now time.Time) error {
	var event models.ArticleEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode article event: %w", err)
	}

	doc, err := buildDocument(event, headerValue(msg.Headers, "cycle_id"), now)
	if err != nil {
		return err
	}

	if cache.IsSeen(doc.ID) {
		log.Debug("duplicate article", slog.String("id", doc.ID), slog.String("url", doc.URL))
		return nil
	}

	if err := idx.IndexArticle(ctx, doc); err != nil {
		return err
	}

	cache.MarkSeen(doc.ID)
	log.Info("indexed article",
		slog.String("id", doc.ID),
		slog.String("keyword", doc.Keyword),
		slog.String("title", processing.Preview(doc.Title, 40)),
	)
	return nil
}

func buildDocument(event models.ArticleEvent, headerCycle string, now time.Time) (models.ArticleDocument, error) {
	url := strings.TrimSpace(event.URL)
	if url == "" {
		return models.ArticleDocument{}, errMissingURL
	}
	title := processing.CollapseWhitespace(event.Title)
	if title == "" {
		return models.ArticleDocument{}, errMissingTitle
	}

	cycleID := event.CycleID
	if cycleID == "" {
		cycleID = headerCycle
	}

	indexedAt := event.PublishedAt
	if indexedAt.IsZero() {
		indexedAt = now
	}

	return models.ArticleDocument{
		ID:          processing.BuildDocumentID(url),
		Title:       title,
		URL:         url,
		Description: event.Description,
		Source:      event.Source,
		Date:        event.Date,
		Thumbnail:   event.Thumbnail,
		Keyword:     event.Keyword,
		CycleID:     cycleID,
		IndexedAt:   indexedAt.UTC(),
	}, nil
}

// sendToDLQ forwards msg with its failure context, retrying with
// exponential backoff from base. It reports whether the write succeeded and
// returns an error only when ctx ends during a retry.
func sendToDLQ(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error, base time.Duration) (bool, error) {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(append([]kafka.Header(nil), msg.Headers...),
			kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range dlqAttempts {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true, nil
		}

		backoff := base << uint(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return false, nil
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

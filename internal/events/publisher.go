// Package events announces published articles on a Kafka topic so that
// downstream consumers (the search indexer) see every feed refresh.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/owldoor/door-news/internal/models"
)

// Publisher writes one message per article, keyed by article URL.
type Publisher struct {
	w *kafka.Writer
}

// NewPublisher creates a Publisher for topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// PublishArticles sends the articles of one published feed.
func (p *Publisher) PublishArticles(ctx context.Context, cycleID string, at time.Time, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	msgs, err := Messages(cycleID, at, articles)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write article events: %w", err)
	}
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.w.Close()
}

// Messages encodes articles as ArticleEvent messages.
func Messages(cycleID string, at time.Time, articles []models.Article) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(articles))
	for _, a := range articles {
		payload, err := json.Marshal(models.ArticleEvent{
			Article:     a,
			CycleID:     cycleID,
			PublishedAt: at.UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("marshal article event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(a.URL),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "cycle_id", Value: []byte(cycleID)},
			},
		})
	}
	return msgs, nil
}

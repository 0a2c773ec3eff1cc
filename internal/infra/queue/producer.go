package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes article events keyed by article ID, so every
// version of an article lands on the same partition in order.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	slog.Info("Kafka Producer initialized", "brokers", brokers, "topic", topic)
	return &KafkaProducer{writer: w, topic: topic}
}

func (p *KafkaProducer) Publish(ctx context.Context, article *domain.Article) error {
	msg, err := articleMessage(article)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Failed to write to kafka", "topic", p.topic, "error", err)
		return fmt.Errorf("write article %s: %w", article.ID, err)
	}

	slog.Debug("Published article to Kafka", "id", article.ID, "source", article.Source, "topic", p.topic)
	return nil
}

// PublishBatch writes all articles in one request.
func (p *KafkaProducer) PublishBatch(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(articles))
	for i := range articles {
		msg, err := articleMessage(&articles[i])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		slog.Error("Failed to write batch to kafka", "topic", p.topic, "count", len(msgs), "error", err)
		return fmt.Errorf("write %d articles: %w", len(msgs), err)
	}
	slog.Debug("Published article batch to Kafka", "count", len(msgs), "topic", p.topic)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

func articleMessage(article *domain.Article) (kafka.Message, error) {
	payload, err := json.Marshal(article)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal article %s: %w", article.ID, err)
	}
	return kafka.Message{
		Key:   []byte(article.ID),
		Value: payload,
	}, nil
}

var _ domain.EventProducer = (*KafkaProducer)(nil)

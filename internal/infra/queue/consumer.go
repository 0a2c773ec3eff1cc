package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/metrics"
	"github.com/chitram/companion/pkg/logging"
	"github.com/segmentio/kafka-go"
)

// KafkaConsumer reads article events in a consumer group and moves events
// the handler rejects to a dead letter queue.
type KafkaConsumer struct {
	reader      *kafka.Reader
	dlqProducer domain.EventProducer
	sampler     *logging.ErrorSampler
}

func NewKafkaConsumer(brokers []string, topic string, groupID string, dlqProducer domain.EventProducer) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	slog.Info("Kafka Consumer initialized", "brokers", brokers, "topic", topic, "group", groupID)
	return &KafkaConsumer{
		reader:      r,
		dlqProducer: dlqProducer,
		sampler:     logging.NewErrorSampler(10, nil),
	}
}

type MessageHandler func(ctx context.Context, article *domain.Article) error

// Start blocks until ctx is cancelled or the reader fails.
func (c *KafkaConsumer) Start(ctx context.Context, handler MessageHandler) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				slog.Info("Kafka consumer stopped")
			} else {
				slog.Error("Error reading kafka message", "error", err)
			}
			return
		}
		c.handleMessage(ctx, m, handler)
	}
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, m kafka.Message, handler MessageHandler) {
	var article domain.Article
	if err := json.Unmarshal(m.Value, &article); err != nil {
		c.sampler.Error(ctx, "decode", "Error unmarshaling article", "partition", m.Partition, "offset", m.Offset, "error", err)
		return
	}

	slog.Debug("Received article from Kafka", "id", article.ID, "partition", m.Partition)

	if err := handler(ctx, &article); err != nil {
		c.sampler.Error(ctx, "handler:"+article.Source, "Error handling article event", "id", article.ID, "error", err)

		if c.dlqProducer == nil {
			return
		}
		slog.Info("Publishing failed event to DLQ", "article_id", article.ID)
		if dlqErr := c.dlqProducer.Publish(ctx, &article); dlqErr != nil {
			slog.Error("Failed to publish to DLQ", "article_id", article.ID, "error", dlqErr)
			return
		}
		metrics.DLQMessagesPublished.WithLabelValues(article.Source).Inc()
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

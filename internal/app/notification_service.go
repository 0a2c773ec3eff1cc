package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/metrics"
	"github.com/chitram/companion/internal/infra/queue"
)

// ArticleConsumer delivers article events to a handler until ctx ends.
type ArticleConsumer interface {
	Start(ctx context.Context, handler queue.MessageHandler)
	Close() error
}

// NotificationService turns published article events into push notifications.
type NotificationService struct {
	consumer ArticleConsumer
	gateway  domain.NotificationGateway
}

func NewNotificationService(consumer ArticleConsumer, gateway domain.NotificationGateway) *NotificationService {
	return &NotificationService{
		consumer: consumer,
		gateway:  gateway,
	}
}

func (s *NotificationService) Start(ctx context.Context) {
	slog.Info("Starting notification service (Kafka Consumer)")
	go s.consumer.Start(ctx, s.handleEvent)
}

func (s *NotificationService) handleEvent(ctx context.Context, article *domain.Article) error {
	start := time.Now()
	slog.Info("Consuming article event", "article_id", article.ID, "title", article.Title)

	err := s.gateway.NotifyArticle(ctx, article)
	metrics.NotifyDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Error("Failed to notify article", "article_id", article.ID, "error", err)
		metrics.NotifyResults.WithLabelValues(article.Source, "error").Inc()
		return err
	}

	metrics.NotifyResults.WithLabelValues(article.Source, "success").Inc()
	return nil
}

func (s *NotificationService) Stop() error {
	return s.consumer.Close()
}

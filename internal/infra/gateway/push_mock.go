package gateway

import (
	"context"
	"log/slog"

	"github.com/chitram/companion/internal/domain"
)

// PushMockGateway stands in for a mobile push service by logging what would
// be sent.
type PushMockGateway struct {
	topic string
}

func NewPushMockGateway(topic string) *PushMockGateway {
	if topic == "" {
		topic = "movie-news"
	}
	return &PushMockGateway{topic: topic}
}

func (g *PushMockGateway) NotifyArticle(ctx context.Context, article *domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Push notification",
		"topic", g.topic,
		"article_id", article.ID,
		"title", article.Title,
		"image_url", article.ImageURL,
		"source", article.Source,
		"published_at", article.PublishedAt)
	return nil
}

var _ domain.NotificationGateway = (*PushMockGateway)(nil)

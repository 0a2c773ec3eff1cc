package gateway

import (
	"context"
	"testing"

	"github.com/chitram/companion/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPushMockGateway_NotifyArticle(t *testing.T) {
	g := NewPushMockGateway("")
	assert.Equal(t, "movie-news", g.topic)
	assert.NoError(t, g.NotifyArticle(context.Background(), &domain.Article{ID: "rss_1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.NotifyArticle(ctx, &domain.Article{ID: "rss_1"}), context.Canceled)
}

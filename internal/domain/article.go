package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Article is a normalized movie news article.
type Article struct {
	ID          string    `json:"_id" bson:"_id"`
	Source      string    `json:"source" bson:"source"` // provider name, e.g. "filmibeat-rss"
	ExternalID  string    `json:"external_id" bson:"external_id"`
	Title       string    `json:"title" bson:"title"`
	Summary     string    `json:"summary" bson:"summary"`
	Content     string    `json:"content" bson:"content"`
	URL         string    `json:"url" bson:"url"`
	ImageURL    string    `json:"image_url" bson:"image_url"`
	Categories  []string  `json:"categories,omitempty" bson:"categories,omitempty"`
	PublishedAt time.Time `json:"published_at" bson:"published_at"`
	FetchedAt   time.Time `json:"fetched_at" bson:"fetched_at"`
	ContentHash string    `json:"content_hash" bson:"content_hash"`
}

// ComputeHash hashes the fields that make an article "changed" for readers.
// Timestamps are left out so a re-fetch of identical content is not a change.
func (a *Article) ComputeHash() string {
	hasher := sha256.New()
	hasher.Write([]byte(a.Source))
	hasher.Write([]byte(a.URL))
	hasher.Write([]byte(a.Title))
	hasher.Write([]byte(a.Summary))
	hasher.Write([]byte(a.Content))
	hasher.Write([]byte(a.ImageURL))
	return hex.EncodeToString(hasher.Sum(nil))
}

// PageInfo is the paging metadata a transformer extracts from one response.
type PageInfo struct {
	Page       int
	TotalPages int
}

// ArticleWriter handles article persistence operations.
type ArticleWriter interface {
	BulkUpsert(ctx context.Context, articles []Article) error
}

// ArticleReader handles article retrieval operations.
type ArticleReader interface {
	GetLastFetched(ctx context.Context, source string) (*Article, error)
	Latest(ctx context.Context, limit int) ([]Article, error)
}

// HashReader handles content hash retrieval for change detection.
type HashReader interface {
	GetContentHashes(ctx context.Context, ids []string) (map[string]string, error)
}

// Repository is everything the crawler needs from article storage.
type Repository interface {
	ArticleWriter
	ArticleReader
	HashReader
}

// Provider is a news source crawled page by page.
type Provider interface {
	Crawl(ctx context.Context, handler func([]Article) error) error
	GetName() string
}

// EventProducer publishes article events to a queue.
type EventProducer interface {
	Publish(ctx context.Context, article *Article) error
	PublishBatch(ctx context.Context, articles []Article) error
	Close() error
}

// NotificationGateway pushes new or changed articles to app users.
type NotificationGateway interface {
	NotifyArticle(ctx context.Context, article *Article) error
}

package factory

import (
	"errors"
	"fmt"

	"github.com/chitram/companion/internal/app"
	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/gateway"
	"github.com/chitram/companion/internal/infra/queue"
	"github.com/chitram/companion/internal/infra/repository"
	transport "github.com/chitram/companion/internal/transport/http"
	"github.com/chitram/companion/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewMongoRepository creates the article repository.
func NewMongoRepository(client *mongo.Client, cfg *config.Config) (domain.Repository, error) {
	if cfg.MongoDBName == "" {
		return nil, errors.New("mongo database name not configured")
	}
	if cfg.MongoColl == "" {
		return nil, errors.New("mongo collection name not configured")
	}
	return repository.NewMongoRepository(client, cfg.MongoDBName, cfg.MongoColl)
}

func NewListingRepository(client *mongo.Client, cfg *config.Config) (domain.ListingRepository, error) {
	if cfg.ListingsColl == "" {
		return nil, errors.New("mongo listings collection not configured")
	}
	return repository.NewListingRepository(client, cfg.MongoDBName, cfg.ListingsColl), nil
}

func NewUserRepository(client *mongo.Client, cfg *config.Config) (domain.UserRepository, error) {
	if cfg.UsersColl == "" {
		return nil, errors.New("mongo users collection not configured")
	}
	return repository.NewUserRepository(client, cfg.MongoDBName, cfg.UsersColl), nil
}

func NewPostRepository(client *mongo.Client, cfg *config.Config) (domain.PostRepository, error) {
	if cfg.PostsColl == "" || cfg.CommentsColl == "" {
		return nil, errors.New("mongo posts or comments collection not configured")
	}
	return repository.NewPostRepository(client, cfg.MongoDBName, cfg.PostsColl, cfg.CommentsColl)
}

// NewNotificationGateway creates the push gateway.
func NewNotificationGateway() domain.NotificationGateway {
	return gateway.NewPushMockGateway("")
}

// NewEventProducer wraps the Kafka producer as an EventProducer.
func NewEventProducer(p *queue.KafkaProducer) (domain.EventProducer, error) {
	if p == nil {
		return nil, errors.New("kafka producer is nil")
	}
	return p, nil
}

// NewNewsCrawlerService creates the news crawler service with validation.
func NewNewsCrawlerService(
	repo domain.Repository,
	providers []domain.Provider,
	eventProducer domain.EventProducer,
	cfg *config.Config,
) (*app.NewsCrawlerService, error) {
	if repo == nil {
		return nil, errors.New("repository is nil")
	}
	if len(providers) == 0 {
		return nil, errors.New("no providers configured")
	}
	if eventProducer == nil {
		return nil, errors.New("event producer is nil")
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > 20000 {
		return nil, fmt.Errorf("invalid batch size: %d (must be 1-20000)", cfg.BatchSize)
	}
	if cfg.WorkerPoolSize <= 0 || cfg.WorkerPoolSize > 100 {
		return nil, fmt.Errorf("invalid worker pool size: %d (must be 1-100)", cfg.WorkerPoolSize)
	}

	return app.NewNewsCrawlerService(
		repo,
		providers,
		eventProducer,
		cfg.PollInterval,
		cfg.BatchSize,
		cfg.WorkerPoolSize,
	), nil
}

// NewNotificationService creates the service that pushes article events.
func NewNotificationService(consumer *queue.KafkaConsumer, gw domain.NotificationGateway) (*app.NotificationService, error) {
	if consumer == nil {
		return nil, errors.New("kafka consumer is nil")
	}
	if gw == nil {
		return nil, errors.New("notification gateway is nil")
	}
	return app.NewNotificationService(consumer, gw), nil
}

func NewDiscoveryService(fetchers app.FetcherFactory, cfg *config.Config) *app.DiscoveryService {
	return app.NewDiscoveryService(fetchers, cfg.FeedLanguage, cfg.DiscoverySessionTTL, cfg.MaxDiscoverySession)
}

func NewListingsService(provider domain.ShowtimesProvider, repo domain.ListingRepository, cfg *config.Config) (*app.ListingsService, error) {
	if repo == nil {
		return nil, errors.New("listing repository is nil")
	}
	if cfg.ListingsInterval <= 0 {
		return nil, fmt.Errorf("invalid listings interval: %s (must be positive)", cfg.ListingsInterval)
	}
	return app.NewListingsService(provider, repo, cfg.ListingsCities, cfg.ListingsInterval), nil
}

func NewSocialService(posts domain.PostRepository, cfg *config.Config) (*app.SocialService, error) {
	if posts == nil {
		return nil, errors.New("post repository is nil")
	}
	if cfg.FeedPageSize < 1 || cfg.FeedPageSize > 100 {
		return nil, fmt.Errorf("invalid feed page size: %d (must be 1-100)", cfg.FeedPageSize)
	}
	return app.NewSocialService(posts, cfg.FeedPageSize), nil
}

func NewAuthService(users domain.UserRepository, cfg *config.Config) (*app.AuthService, error) {
	return app.NewAuthService(users, cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
}

// NewHandlers assembles the HTTP handlers from the services.
func NewHandlers(
	repo domain.Repository,
	listings *app.ListingsService,
	auth *app.AuthService,
	discovery *app.DiscoveryService,
	social *app.SocialService,
	cfg *config.Config,
) *transport.Handlers {
	return transport.NewHandlers(repo, listings, auth, discovery, social, cfg.LatestArticlesLimit)
}

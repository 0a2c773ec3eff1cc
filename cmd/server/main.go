package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/chitram/companion/cmd/server/factory"
	"github.com/chitram/companion/internal/app"
	"github.com/chitram/companion/internal/infra/cache"
	"github.com/chitram/companion/internal/infra/tracing"
	transport "github.com/chitram/companion/internal/transport/http"
	"github.com/chitram/companion/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	fx.New(
		fx.Provide(
			// Config
			config.Load,

			// Infrastructure
			factory.NewMongoClient,
			factory.NewMongoRepository,
			factory.NewListingRepository,
			factory.NewUserRepository,
			factory.NewPostRepository,
			factory.NewPageCacheStore,
			factory.NewPageCache,
			fx.Annotate(
				factory.NewMainKafkaProducer,
				fx.ResultTags(`name:"main_producer"`),
			),
			fx.Annotate(
				factory.NewDLQProducer,
				fx.ResultTags(`name:"dlq_producer"`),
			),
			fx.Annotate(
				factory.NewKafkaConsumer,
				fx.ParamTags(``, `name:"dlq_producer"`),
			),

			// Gateways & Producers
			factory.NewNotificationGateway,
			fx.Annotate(
				factory.NewEventProducer,
				fx.ParamTags(`name:"main_producer"`),
			),

			// Providers
			factory.NewProviders,
			factory.NewTMDBClient,
			factory.NewFetcherFactory,
			factory.NewShowtimesProvider,

			// Services
			factory.NewNewsCrawlerService,
			factory.NewNotificationService,
			factory.NewDiscoveryService,
			factory.NewListingsService,
			factory.NewSocialService,
			factory.NewAuthService,

			// HTTP Server
			factory.NewHandlers,
			transport.NewHTTPServer,
		),
		fx.Invoke(
			SetupTracer,
			WaitForReady, // Block until dependencies are ready
			RegisterHooks,
			StartServer,
		),
	).Run()
}

// --- Invokers ---

func RegisterHooks(
	lc fx.Lifecycle,
	crawler *app.NewsCrawlerService,
	notifier *app.NotificationService,
	discovery *app.DiscoveryService,
	listings *app.ListingsService,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go crawler.Start(ctx)
			notifier.Start(ctx)
			go discovery.Run(ctx)
			go listings.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return notifier.Stop()
		},
	})
}

func SetupTracer(lc fx.Lifecycle, cfg *config.Config) error {
	ctx := context.Background()
	shutdown, err := tracing.InitTracer(ctx, "chitram-companion", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("Failed to initialize tracer", "error", err)
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Info("Shutting down tracer provider")
			return shutdown(ctx)
		},
	})
	return nil
}

// WaitForReady blocks until all dependencies are ready.
func WaitForReady(
	cfg *config.Config,
	mongoClient *mongo.Client,
	store cache.Store,
) error {
	ctx := context.Background()
	waiter := app.NewReadinessWaiter(2*time.Second).
		Add("mongodb", app.MongoCheck(mongoClient)).
		Add("kafka", app.KafkaCheck(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaDLQTopic))
	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		waiter.Add("redis", pinger.Ping)
	}
	return waiter.WaitForDependencies(ctx)
}

func StartServer(lc fx.Lifecycle, server *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				slog.Info("Starting HTTP server", "address", server.Addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "chitram-crawler"

// NewsCrawlerService crawls every news provider on a fixed interval with a
// bounded worker pool, stores the articles and publishes the ones whose
// content changed.
type NewsCrawlerService struct {
	repo            domain.Repository
	providers       []domain.Provider
	eventProducer   domain.EventProducer
	interval        time.Duration
	batchSize       int
	workerCount     int
	jobs            chan job
	wg              sync.WaitGroup // Service-wide WaitGroup for graceful shutdown
	activeProviders sync.Map       // Track active provider processing
}

type job struct {
	provider domain.Provider
}

func NewNewsCrawlerService(
	repo domain.Repository,
	providers []domain.Provider,
	eventProducer domain.EventProducer,
	interval time.Duration,
	batchSize int,
	workerCount int,
) *NewsCrawlerService {
	if batchSize < 1 {
		batchSize = 20
	}
	if workerCount < 1 {
		workerCount = 1
	}
	return &NewsCrawlerService{
		repo:          repo,
		providers:     providers,
		eventProducer: eventProducer,
		interval:      interval,
		batchSize:     batchSize,
		workerCount:   workerCount,
		jobs:          make(chan job, workerCount*2), // Buffer to avoid blocking providers immediately
	}
}

func (s *NewsCrawlerService) Start(ctx context.Context) {
	slog.Info("Starting news crawler service", "interval", s.interval, "workers", s.workerCount)

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	// Providers waitgroup tracks PROVIDER goroutines
	var providersWg sync.WaitGroup
	for _, provider := range s.providers {
		slog.Info("Starting provider loop", "provider", provider.GetName())
		providersWg.Add(1)
		go s.runProviderLoop(ctx, provider, &providersWg)
	}

	// Wait for context cancellation
	<-ctx.Done()
	slog.Info("Context cancelled, stopping news crawler service...")

	providersWg.Wait()
	slog.Info("All providers stopped")

	close(s.jobs)

	s.wg.Wait()
	slog.Info("All workers stopped")
}

func (s *NewsCrawlerService) runProviderLoop(ctx context.Context, p domain.Provider, wg *sync.WaitGroup) {
	defer wg.Done()

	// Initial fetch
	select {
	case s.jobs <- job{provider: p}:
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case s.jobs <- job{provider: p}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *NewsCrawlerService) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	slog.Info("Worker started", "worker_id", id)

	// Range over channel handles closing correctly: exits loop when closed and empty
	for j := range s.jobs {
		// Prevent concurrent processing of the same provider
		name := j.provider.GetName()
		if _, loaded := s.activeProviders.LoadOrStore(name, true); loaded {
			slog.Warn("Skipping concurrent run", "provider", name, "worker_id", id)
			continue
		}

		metrics.WorkerActiveCount.Inc()
		func() {
			defer s.activeProviders.Delete(name)
			s.processProvider(ctx, j.provider)
		}()
		metrics.WorkerActiveCount.Dec()
	}
	slog.Info("Worker stopped", "worker_id", id)
}

func (s *NewsCrawlerService) processProvider(ctx context.Context, provider domain.Provider) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "processProvider")
	defer span.End()

	name := provider.GetName()
	span.SetAttributes(attribute.String("provider", name))
	slog.Debug("Starting crawl for provider", "provider", name)

	start := time.Now()
	defer func() {
		metrics.CrawlDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	// Pages are handed over as they arrive, in batches of at most batchSize.
	handler := func(articles []domain.Article) error {
		for len(articles) > 0 {
			n := min(len(articles), s.batchSize)
			if err := s.processBatch(ctx, provider, articles[:n]); err != nil {
				return err
			}
			articles = articles[n:]
		}
		return nil
	}

	if err := provider.Crawl(ctx, handler); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "crawl failed")
		slog.Error("Crawl failed", "provider", name, "error", err)
		metrics.ArticlesIngested.WithLabelValues(name, "error_crawl").Inc()
	}
}

func (s *NewsCrawlerService) processBatch(ctx context.Context, provider domain.Provider, articles []domain.Article) error {
	name := provider.GetName()

	// Dedup within batch
	unique := make([]domain.Article, 0, len(articles))
	seenIDs := make(map[string]bool, len(articles))
	for _, a := range articles {
		if !seenIDs[a.ID] {
			seenIDs[a.ID] = true
			unique = append(unique, a)
		}
	}
	if len(unique) == 0 {
		return nil
	}

	ids := make([]string, 0, len(unique))
	for i := range unique {
		unique[i].ContentHash = unique[i].ComputeHash()
		ids = append(ids, unique[i].ID)
	}

	existingHashes, err := s.repo.GetContentHashes(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch hashes: %w", err)
	}

	var changed []domain.Article
	skipped := 0
	for _, article := range unique {
		oldHash, exists := existingHashes[article.ID]
		switch {
		case !exists:
			slog.Info("Article New", "provider", name, "id", article.ID)
			changed = append(changed, article)
		case oldHash != article.ContentHash:
			slog.Info("Article Changed", "provider", name, "id", article.ID)
			changed = append(changed, article)
		default:
			skipped++
		}
	}

	if skipped > 0 {
		metrics.ArticlesUnchangedSkipped.WithLabelValues(name).Add(float64(skipped))
	}
	metrics.ArticlesIngested.WithLabelValues(name, "success").Add(float64(len(unique)))
	// Initialize published metrics so they are exported even if 0
	metrics.ArticlesPublished.WithLabelValues(name).Add(0)
	metrics.PublishErrors.WithLabelValues(name).Add(0)

	if err := s.repo.BulkUpsert(ctx, unique); err != nil {
		return fmt.Errorf("bulk upsert failed: %w", err)
	}

	if len(changed) == 0 {
		return nil
	}

	slog.Info("Publishing changed articles", "count", len(changed), "provider", name)
	if err := s.eventProducer.PublishBatch(ctx, changed); err != nil {
		// Stored already; the next content change republishes.
		slog.Error("Error publishing article batch", "count", len(changed), "error", err)
		metrics.PublishErrors.WithLabelValues(name).Inc()
		return nil
	}
	metrics.ArticlesPublished.WithLabelValues(name).Add(float64(len(changed)))
	return nil
}

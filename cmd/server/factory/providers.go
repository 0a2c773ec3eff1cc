package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chitram/companion/internal/app"
	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/cache"
	"github.com/chitram/companion/internal/infra/listings"
	"github.com/chitram/companion/internal/infra/provider"
	"github.com/chitram/companion/internal/infra/tmdb"
	"github.com/chitram/companion/internal/infra/transformer"
	"github.com/chitram/companion/internal/infra/upstream"
	"github.com/chitram/companion/pkg/config"
	"github.com/chitram/companion/pkg/feed"
)

const sourceTimeout = 15 * time.Second

// NewProviders creates all configured news providers.
func NewProviders(cfg *config.Config) ([]domain.Provider, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	var providers []domain.Provider
	for _, source := range cfg.Sources {
		tr, err := transformer.GetTransformer(source.Transformer)
		if err != nil {
			slog.Warn("Skipping source", "source", source.Name, "error", err)
			continue
		}

		client := upstream.New(source.Name, sourceTimeout)
		providers = append(providers, provider.NewGenericProvider(source, tr, client))
		slog.Info("Registered provider", "provider", source.Name, "transformer", source.Transformer)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no valid providers configured")
	}
	return providers, nil
}

// NewTMDBClient creates the metadata client behind discovery and the CLI.
func NewTMDBClient(cfg *config.Config) (*tmdb.Client, error) {
	if cfg.TMDBBaseURL == "" {
		return nil, errors.New("tmdb base URL not configured")
	}
	if cfg.TMDBToken == "" {
		slog.Warn("TMDB_API_TOKEN is empty, TMDB will reject requests")
	}
	return tmdb.NewClient(cfg.TMDBBaseURL, cfg.TMDBToken, cfg.TMDBRegion, upstream.New("tmdb", cfg.TMDBTimeout)), nil
}

// NewPageCache returns the page cache shared by all discovery sessions, or
// nil when no store is configured.
func NewPageCache(store cache.Store, cfg *config.Config) *cache.Pages[domain.Title] {
	if store == nil {
		return nil
	}
	return cache.NewPages[domain.Title](store, cfg.PageCacheTTL)
}

// NewFetcherFactory binds discovery feeds to TMDB, reading through the page
// cache when one is configured.
func NewFetcherFactory(client *tmdb.Client, pages *cache.Pages[domain.Title]) app.FetcherFactory {
	if pages == nil {
		return client.Fetcher
	}
	return func(kind tmdb.Kind, query string, langs []string) (feed.FetchFunc[domain.Title], error) {
		fetch, err := client.Fetcher(kind, query, langs)
		if err != nil {
			return nil, err
		}
		return pages.Fetch(CacheNamespace(kind, query, langs), fetch), nil
	}
}

// CacheNamespace keys cached pages by everything that changes a listing.
func CacheNamespace(kind tmdb.Kind, query string, langs []string) string {
	return fmt.Sprintf("%s:%s:%s", kind, strings.ToLower(strings.TrimSpace(query)), strings.Join(langs, "|"))
}

// NewShowtimesProvider returns nil when no listings source is configured,
// which leaves city listings to whatever is already stored.
func NewShowtimesProvider(cfg *config.Config) (domain.ShowtimesProvider, error) {
	if cfg.ListingsURL == "" {
		slog.Warn("LISTINGS_URL is empty, city listings will not be refreshed")
		return nil, nil
	}
	client, err := listings.NewClient(cfg.ListingsURL, upstream.New("listings", sourceTimeout))
	if err != nil {
		return nil, err
	}
	return client, nil
}

package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/metrics"
)

var ErrEmptyCity = errors.New("city is required")

// ListingsService keeps the per-city theater listings fresh and serves them.
type ListingsService struct {
	provider domain.ShowtimesProvider
	repo     domain.ListingRepository
	cities   []string
	interval time.Duration
}

func NewListingsService(provider domain.ShowtimesProvider, repo domain.ListingRepository, cities []string, interval time.Duration) *ListingsService {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &ListingsService{
		provider: provider,
		repo:     repo,
		cities:   cities,
		interval: interval,
	}
}

// Start refreshes all configured cities now and then on every interval until
// ctx is cancelled. Without a provider only stored listings are served.
func (s *ListingsService) Start(ctx context.Context) {
	if s.provider == nil || len(s.cities) == 0 {
		slog.Info("City listings refresh disabled")
		return
	}
	slog.Info("Starting city listings refresh", "cities", s.cities, "interval", s.interval)

	s.RefreshAll(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RefreshAll(ctx)
		}
	}
}

// RefreshAll refreshes each city independently; one failing city does not
// stop the rest.
func (s *ListingsService) RefreshAll(ctx context.Context) {
	for _, city := range s.cities {
		if ctx.Err() != nil {
			return
		}
		if err := s.RefreshCity(ctx, city); err != nil {
			slog.Error("City listings refresh failed", "city", city, "error", err)
		}
	}
}

func (s *ListingsService) RefreshCity(ctx context.Context, city string) error {
	key := normalizeCity(city)
	movies, err := s.provider.Fetch(ctx, key)
	if err != nil {
		metrics.ListingsRefreshed.WithLabelValues(key, "error").Inc()
		return err
	}
	if err := s.repo.SaveListing(ctx, key, movies); err != nil {
		metrics.ListingsRefreshed.WithLabelValues(key, "error").Inc()
		return err
	}
	metrics.ListingsRefreshed.WithLabelValues(key, "success").Inc()
	slog.Info("City listings refreshed", "city", key, "movies", len(movies))
	return nil
}

// CityMovies returns the stored listing; a city never refreshed has none.
func (s *ListingsService) CityMovies(ctx context.Context, city string) ([]domain.CityMovie, error) {
	key := normalizeCity(city)
	if key == "" {
		return nil, ErrEmptyCity
	}
	movies, err := s.repo.GetListing(ctx, key)
	if err != nil {
		return nil, err
	}
	if movies == nil {
		movies = []domain.CityMovie{}
	}
	return movies, nil
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

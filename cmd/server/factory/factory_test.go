package factory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/repository"
	"github.com/chitram/companion/internal/infra/tmdb"
	"github.com/chitram/companion/internal/infra/upstream"
	"github.com/chitram/companion/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Close() error { return nil }

func TestFetcherFactory_SessionsShareUpstreamCalls(t *testing.T) {
	var calls atomic.Int32
	arrived := make(chan struct{}, 16)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		arrived <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"page":1,"total_pages":3,"results":[{"id":7,"title":"Stree 2","original_language":"hi"}]}`))
	}))
	defer server.Close()

	cfg := &config.Config{PageCacheTTL: time.Minute}
	client := tmdb.NewClient(server.URL, "token", "IN", upstream.New("tmdb-test", 5*time.Second, upstream.WithRetries(0, time.Millisecond)))
	fetchers := NewFetcherFactory(client, NewPageCache(&memStore{data: map[string][]byte{}}, cfg))

	const sessions = 5
	var wg sync.WaitGroup
	wg.Add(sessions)
	for i := 0; i < sessions; i++ {
		fetch, err := fetchers(tmdb.KindNowPlaying, "", []string{"hi"})
		require.NoError(t, err)
		go func() {
			defer wg.Done()
			p, err := fetch(context.Background(), 1)
			assert.NoError(t, err)
			assert.Len(t, p.Items, 1)
		}()
	}

	<-arrived
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcherFactory_WithoutCacheCallsTMDB(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"results":[{"id":7,"title":"Stree 2","original_language":"hi"}]}`))
	}))
	defer server.Close()

	client := tmdb.NewClient(server.URL, "token", "IN", upstream.New("tmdb-test", 5*time.Second, upstream.WithRetries(0, time.Millisecond)))
	fetchers := NewFetcherFactory(client, NewPageCache(nil, &config.Config{}))

	for i := 0; i < 2; i++ {
		fetch, err := fetchers(tmdb.KindTrending, "", nil)
		require.NoError(t, err)
		_, err = fetch(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheNamespace(t *testing.T) {
	assert.Equal(t, "search:rrr:te|hi", CacheNamespace(tmdb.KindSearch, " RRR ", []string{"te", "hi"}))
	assert.NotEqual(t, CacheNamespace(tmdb.KindTopTV, "", []string{"hi"}), CacheNamespace(tmdb.KindTopTV, "", []string{"ta"}))
}

type listingRepo struct {
	mock.Mock
}

func (m *listingRepo) SaveListing(ctx context.Context, city string, movies []domain.CityMovie) error {
	return m.Called(ctx, city, movies).Error(0)
}

func (m *listingRepo) GetListing(ctx context.Context, city string) ([]domain.CityMovie, error) {
	args := m.Called(ctx, city)
	return args.Get(0).([]domain.CityMovie), args.Error(1)
}

func TestNewListingsService_RejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Minute} {
		_, err := NewListingsService(nil, new(listingRepo), &config.Config{ListingsInterval: interval})
		assert.Error(t, err, interval.String())
	}

	svc, err := NewListingsService(nil, new(listingRepo), &config.Config{ListingsInterval: time.Minute})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewSocialService_ValidatesConfig(t *testing.T) {
	posts := (*repository.PostRepository)(nil)

	_, err := NewSocialService(nil, &config.Config{FeedPageSize: 10})
	assert.Error(t, err)
	for _, size := range []int{0, -1, 101} {
		_, err := NewSocialService(posts, &config.Config{FeedPageSize: size})
		assert.Error(t, err, size)
	}

	svc, err := NewSocialService(posts, &config.Config{FeedPageSize: 10})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

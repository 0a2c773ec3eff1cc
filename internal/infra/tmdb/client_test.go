package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/upstream"
	"github.com/chitram/companion/pkg/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	up := upstream.New("tmdb-test", time.Second, upstream.WithRetries(0, time.Millisecond))
	return NewClient(server.URL+"/", "secret", "IN", up)
}

func TestClient_NowPlaying(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/now_playing", r.URL.Path)
		assert.Equal(t, "IN", r.URL.Query().Get("region"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"page": 2,
			"total_pages": 5,
			"results": [
				{"id": 11, "title": "Pushpa 2", "poster_path": "/p.jpg", "original_language": "te", "vote_average": 7.4},
				{"id": 12, "title": "Dune", "original_language": "en"}
			]
		}`))
	})

	page, err := c.NowPlaying(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.PageNumber)
	assert.Equal(t, 5, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.Title{
		ID: 11, MediaType: domain.MediaMovie, Name: "Pushpa 2", PosterPath: "/p.jpg",
		OriginalLanguage: "te", VoteAverage: 7.4,
	}, page.Items[0])
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/p.jpg", page.Items[0].PosterURL())
}

func TestClient_TrendingSkipsPeople(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/all/day", r.URL.Path)
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"results":[
			{"id": 1, "media_type": "movie", "title": "Kalki"},
			{"id": 1, "media_type": "tv", "name": "Panchayat", "first_air_date": "2020-04-03"},
			{"id": 9, "media_type": "person", "name": "Someone"}
		]}`))
	})

	page, err := c.Trending(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Panchayat", page.Items[1].Name)
	assert.Equal(t, "2020-04-03", page.Items[1].ReleaseDate)
	assert.NotEqual(t, page.Items[0].Key(), page.Items[1].Key())
}

func TestClient_TopRatedTVLanguages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hi|ta", r.URL.Query().Get("with_original_language"))
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"results":[{"id":3,"name":"Kota Factory","original_language":"hi"}]}`))
	})

	page, err := c.TopRatedTV(context.Background(), []string{"hi", "ta"}, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTV, page.Items[0].MediaType)
}

func TestClient_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing results", body: `{"page":1,"total_pages":3}`},
		{name: "missing total pages", body: `{"page":1,"results":[]}`},
		{name: "not json", body: `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.NowPlaying(context.Background(), 1)

			var malformed *feed.MalformedResponseError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestClient_StatusErrorIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.NowPlaying(context.Background(), 1)

	var netErr *feed.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusUnauthorized, netErr.StatusCode)
	assert.Equal(t, 1, netErr.Page)
}

func TestClient_Fetcher(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "rrr", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"results":[{"id":5,"title":"RRR","original_language":"te"}]}`))
	})

	_, err := c.Fetcher(KindSearch, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = c.Fetcher("upcoming", "", nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	fetch, err := c.Fetcher(KindSearch, " rrr ", nil)
	require.NoError(t, err)

	ctrl := feed.New(fetch, domain.Title.Key)
	st := ctrl.LoadNextPage(context.Background())
	assert.Equal(t, feed.Exhausted, st.Status)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "RRR", st.Items[0].Name)
}

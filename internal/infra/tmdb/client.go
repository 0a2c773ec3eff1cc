// Package tmdb loads paginated movie and TV listings from The Movie Database
// as feed pages.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/upstream"
	"github.com/chitram/companion/pkg/feed"
)

// Kind names a paginated TMDB listing.
type Kind string

const (
	KindNowPlaying Kind = "now_playing"
	KindTrending   Kind = "trending"
	KindSearch     Kind = "search"
	KindTopTV      Kind = "top_tv"
)

// ErrUnknownKind is returned by Fetcher for a listing it does not serve.
var ErrUnknownKind = errors.New("tmdb: unknown listing kind")

// ErrEmptyQuery is returned by Fetcher for a search without text.
var ErrEmptyQuery = errors.New("tmdb: search query is empty")

type Client struct {
	baseURL string
	token   string
	region  string
	up      *upstream.Client
}

func NewClient(baseURL, token, region string, up *upstream.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		region:  region,
		up:      up,
	}
}

// listResponse mirrors TMDB's paged list envelope. Pointers tell a missing
// field apart from a zero value.
type listResponse struct {
	Page       *int      `json:"page"`
	Results    *[]result `json:"results"`
	TotalPages *int      `json:"total_pages"`
}

type result struct {
	ID               int64   `json:"id"`
	MediaType        string  `json:"media_type"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	OriginalLanguage string  `json:"original_language"`
	VoteAverage      float64 `json:"vote_average"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
}

// NowPlaying lists movies in theaters in the client's region.
func (c *Client) NowPlaying(ctx context.Context, page int) (feed.Page[domain.Title], error) {
	q := url.Values{}
	q.Set("region", c.region)
	return c.list(ctx, "now_playing", "/movie/now_playing", q, page, domain.MediaMovie)
}

// Trending lists today's trending movies and series. People are skipped.
func (c *Client) Trending(ctx context.Context, page int) (feed.Page[domain.Title], error) {
	q := url.Values{}
	q.Set("region", c.region)
	return c.list(ctx, "trending", "/trending/all/day", q, page, "")
}

// SearchMovies searches movies by title.
func (c *Client) SearchMovies(ctx context.Context, query string, page int) (feed.Page[domain.Title], error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("region", c.region)
	return c.list(ctx, "search", "/search/movie", q, page, domain.MediaMovie)
}

// TopRatedTV lists top rated series, optionally restricted to original languages.
func (c *Client) TopRatedTV(ctx context.Context, langs []string, page int) (feed.Page[domain.Title], error) {
	q := url.Values{}
	q.Set("region", c.region)
	if len(langs) > 0 {
		q.Set("with_original_language", strings.Join(langs, "|"))
	}
	return c.list(ctx, "top_tv", "/tv/top_rated", q, page, domain.MediaTV)
}

// Fetcher binds a listing kind and its arguments into a feed.FetchFunc.
func (c *Client) Fetcher(kind Kind, query string, langs []string) (feed.FetchFunc[domain.Title], error) {
	switch kind {
	case KindNowPlaying:
		return c.NowPlaying, nil
	case KindTrending:
		return c.Trending, nil
	case KindSearch:
		query = strings.TrimSpace(query)
		if query == "" {
			return nil, ErrEmptyQuery
		}
		return func(ctx context.Context, page int) (feed.Page[domain.Title], error) {
			return c.SearchMovies(ctx, query, page)
		}, nil
	case KindTopTV:
		return func(ctx context.Context, page int) (feed.Page[domain.Title], error) {
			return c.TopRatedTV(ctx, langs, page)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (c *Client) list(ctx context.Context, endpoint, path string, q url.Values, page int, media domain.MediaType) (feed.Page[domain.Title], error) {
	q.Set("page", strconv.Itoa(page))
	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	body, err := c.up.Get(ctx, endpoint, c.baseURL+path+"?"+q.Encode(), header)
	if err != nil {
		netErr := &feed.NetworkError{Page: page, Err: err}
		var se *upstream.StatusError
		if errors.As(err, &se) {
			netErr.StatusCode = se.StatusCode
		}
		return feed.Page[domain.Title]{}, netErr
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return feed.Page[domain.Title]{}, &feed.MalformedResponseError{Page: page, Reason: "decode: " + err.Error()}
	}
	if resp.Results == nil {
		return feed.Page[domain.Title]{}, &feed.MalformedResponseError{Page: page, Reason: "missing results"}
	}
	if resp.TotalPages == nil {
		return feed.Page[domain.Title]{}, &feed.MalformedResponseError{Page: page, Reason: "missing total_pages"}
	}

	pageNumber := page
	if resp.Page != nil {
		pageNumber = *resp.Page
	}

	titles := make([]domain.Title, 0, len(*resp.Results))
	for _, r := range *resp.Results {
		mt := media
		if mt == "" {
			mt = domain.MediaType(r.MediaType)
		}
		if mt != domain.MediaMovie && mt != domain.MediaTV {
			continue
		}
		titles = append(titles, r.toTitle(mt))
	}

	return feed.Page[domain.Title]{
		Items:      titles,
		PageNumber: pageNumber,
		TotalPages: *resp.TotalPages,
	}, nil
}

func (r result) toTitle(mt domain.MediaType) domain.Title {
	name, released := r.Title, r.ReleaseDate
	if mt == domain.MediaTV {
		name, released = r.Name, r.FirstAirDate
	}
	return domain.Title{
		ID:               r.ID,
		MediaType:        mt,
		Name:             name,
		Overview:         r.Overview,
		PosterPath:       r.PosterPath,
		OriginalLanguage: r.OriginalLanguage,
		VoteAverage:      r.VoteAverage,
		ReleaseDate:      released,
	}
}

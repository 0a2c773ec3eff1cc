// Package listings fetches what is showing in a city's theaters from a
// showtimes JSON source.
package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/upstream"
)

// CityPlaceholder is replaced with the escaped city name in the source URL.
const CityPlaceholder = "{city}"

var ErrMissingMovies = errors.New("listings response has no movies field")

type Client struct {
	urlTemplate string
	up          *upstream.Client
}

// NewClient expects a URL template containing {city}, for example
// https://showtimes.example/api/{city}/movies.
func NewClient(urlTemplate string, up *upstream.Client) (*Client, error) {
	if !strings.Contains(urlTemplate, CityPlaceholder) {
		return nil, fmt.Errorf("listings url %q has no %s placeholder", urlTemplate, CityPlaceholder)
	}
	return &Client{urlTemplate: urlTemplate, up: up}, nil
}

type response struct {
	Movies *[]movie `json:"movies"`
}

type movie struct {
	Name      string   `json:"name"`
	Poster    string   `json:"poster"`
	Rating    string   `json:"rating"`
	Languages []string `json:"languages"`
}

func (c *Client) Fetch(ctx context.Context, city string) ([]domain.CityMovie, error) {
	target := strings.ReplaceAll(c.urlTemplate, CityPlaceholder, url.PathEscape(city))
	header := http.Header{}
	header.Set("Accept", "application/json")

	body, err := c.up.Get(ctx, "city_movies", target, header)
	if err != nil {
		return nil, fmt.Errorf("fetch listings for %s: %w", city, err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode listings for %s: %w", city, err)
	}
	if resp.Movies == nil {
		return nil, ErrMissingMovies
	}

	out := make([]domain.CityMovie, 0, len(*resp.Movies))
	seen := make(map[string]struct{}, len(*resp.Movies))
	for _, m := range *resp.Movies {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		langs := m.Languages
		if langs == nil {
			langs = []string{}
		}
		out = append(out, domain.CityMovie{Name: name, Poster: m.Poster, Rating: m.Rating, Languages: langs})
	}
	return out, nil
}

var _ domain.ShowtimesProvider = (*Client)(nil)

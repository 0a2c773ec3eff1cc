package domain

import (
	"context"
	"strings"
)

// MediaType distinguishes movies from TV series in mixed listings.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// IndianLanguages are the original languages the app lists by default.
var IndianLanguages = []string{"te", "hi", "ta", "ml", "bn", "kn", "gu", "mr", "pa"}

// Title is a movie or TV series as listed by the metadata provider.
type Title struct {
	ID               int64     `json:"id"`
	MediaType        MediaType `json:"media_type"`
	Name             string    `json:"title"`
	Overview         string    `json:"overview,omitempty"`
	PosterPath       string    `json:"poster_path,omitempty"`
	OriginalLanguage string    `json:"original_language"`
	VoteAverage      float64   `json:"vote_average"`
	ReleaseDate      string    `json:"release_date,omitempty"`
}

// TitleKey identifies a title across mixed movie/TV listings, where numeric
// IDs of the two kinds may collide.
type TitleKey struct {
	MediaType MediaType
	ID        int64
}

func (t Title) Key() TitleKey {
	return TitleKey{MediaType: t.MediaType, ID: t.ID}
}

// PosterURL returns the full poster URL, or "" when there is no poster.
func (t Title) PosterURL() string {
	if t.PosterPath == "" {
		return ""
	}
	return posterBaseURL + t.PosterPath
}

// LanguageFilter keeps titles whose original language is one of langs.
// An empty list keeps everything.
func LanguageFilter(langs []string) func(Title) bool {
	if len(langs) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(langs))
	for _, l := range langs {
		allowed[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return func(t Title) bool {
		_, ok := allowed[t.OriginalLanguage]
		return ok
	}
}

// CityMovie is one film showing in a city's theaters.
type CityMovie struct {
	Name      string   `json:"name" bson:"name"`
	Poster    string   `json:"poster" bson:"poster"`
	Rating    string   `json:"rating" bson:"rating"`
	Languages []string `json:"languages" bson:"languages"`
}

// ListingRepository stores the current theater listings per city.
type ListingRepository interface {
	SaveListing(ctx context.Context, city string, movies []CityMovie) error
	GetListing(ctx context.Context, city string) ([]CityMovie, error)
}

// ShowtimesProvider fetches what is playing in a city right now.
type ShowtimesProvider interface {
	Fetch(ctx context.Context, city string) ([]CityMovie, error)
}

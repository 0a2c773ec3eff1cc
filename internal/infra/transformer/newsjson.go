package transformer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chitram/companion/internal/domain"
)

const NewsJSONName = "newsjson"

// ErrMissingPaging is returned when a paged JSON response lacks articles or total_pages.
var ErrMissingPaging = errors.New("response is missing articles or total_pages")

type newsJSONArticle struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Content     string   `json:"content"`
	ImageURL    string   `json:"image_url"`
	URL         string   `json:"url"`
	Categories  []string `json:"categories"`
	PublishedAt string   `json:"published_at"`
}

type newsJSONResponse struct {
	Articles   *[]newsJSONArticle `json:"articles"`
	Page       int                `json:"page"`
	TotalPages *int               `json:"total_pages"`
}

// NewsJSONTransformer reads {articles, page, total_pages} pages, the shape
// served by movie news APIs and the companion's own latest-articles backend.
type NewsJSONTransformer struct{}

func NewNewsJSONTransformer() *NewsJSONTransformer {
	return &NewsJSONTransformer{}
}

func (t *NewsJSONTransformer) Transform(reader io.Reader) ([]domain.Article, domain.PageInfo, error) {
	var resp newsJSONResponse
	if err := json.NewDecoder(reader).Decode(&resp); err != nil {
		return nil, domain.PageInfo{}, fmt.Errorf("failed to decode news json response: %w", err)
	}
	if resp.Articles == nil || resp.TotalPages == nil {
		return nil, domain.PageInfo{}, ErrMissingPaging
	}

	articles := make([]domain.Article, 0, len(*resp.Articles))
	for _, na := range *resp.Articles {
		a, ok := t.normalize(na)
		if !ok {
			continue
		}
		articles = append(articles, a)
	}

	return articles, domain.PageInfo{Page: resp.Page, TotalPages: *resp.TotalPages}, nil
}

// normalize drops entries with neither an id nor a link to key them by.
func (t *NewsJSONTransformer) normalize(na newsJSONArticle) (domain.Article, bool) {
	externalID := strings.TrimSpace(na.ID)
	if externalID == "" {
		externalID = strings.TrimSpace(na.URL)
	}
	if externalID == "" {
		return domain.Article{}, false
	}

	summary := na.Summary
	if summary == "" {
		summary = truncate(na.Content, 200)
	}

	var published time.Time
	if na.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, na.PublishedAt); err == nil {
			published = ts
		}
	}

	return domain.Article{
		ExternalID:  externalID,
		Title:       na.Title,
		Summary:     summary,
		Content:     na.Content,
		URL:         na.URL,
		ImageURL:    na.ImageURL,
		Categories:  na.Categories,
		PublishedAt: published,
	}, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

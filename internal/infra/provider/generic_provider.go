package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/upstream"
	"github.com/chitram/companion/pkg/config"
	"github.com/chitram/companion/pkg/feed"
)

const (
	defaultMaxPages             = 10
	maxConsecutiveHandlerErrors = 5
)

// GenericProvider crawls a news source through a feed.Controller, so pages
// are fetched in order, one at a time, and articles repeated across pages are
// handed to the handler only once per crawl.
type GenericProvider struct {
	name        string
	url         string
	pageParam   string
	maxPages    int
	transformer domain.Transformer
	client      *upstream.Client
	now         func() time.Time
}

func NewGenericProvider(source config.SourceConfig, transformer domain.Transformer, client *upstream.Client) *GenericProvider {
	maxPages := source.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &GenericProvider{
		name:        source.Name,
		url:         source.URL,
		pageParam:   source.PageParam,
		maxPages:    maxPages,
		transformer: transformer,
		client:      client,
		now:         time.Now,
	}
}

func (p *GenericProvider) GetName() string {
	return p.name
}

// Crawl loads every page of the source until it is exhausted. A failing page
// is retried once before the crawl is aborted. Handler errors are logged and
// skipped unless they happen maxConsecutiveHandlerErrors times in a row.
func (p *GenericProvider) Crawl(ctx context.Context, handler func([]domain.Article) error) error {
	ctrl := feed.New(p.fetchPage, func(a domain.Article) string { return a.ID })

	retriedPage := 0
	consecutiveErrors := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		st := ctrl.LoadNextPage(ctx)
		if st.Status == feed.Failed {
			if errors.Is(st.Err, feed.ErrEmptyResult) {
				slog.Info("Source returned no articles", "provider", p.name)
				return nil
			}
			failedPage := st.CurrentPage + 1
			if retriedPage == failedPage {
				return fmt.Errorf("fetch page %d of %s: %w", failedPage, p.name, st.Err)
			}
			slog.Warn("Page fetch failed, retrying once", "provider", p.name, "page", failedPage, "error", st.Err)
			retriedPage = failedPage
			continue
		}

		fresh := st.NewItems()
		slog.Info("Fetched page",
			"provider", p.name,
			"page", st.CurrentPage,
			"total_pages", st.TotalPages,
			"new_articles", len(fresh),
			"total_articles", len(st.Items))

		if len(fresh) > 0 {
			if err := handler(fresh); err != nil {
				consecutiveErrors++
				slog.Error("Handler failed for page", "provider", p.name, "page", st.CurrentPage, "error", err)
				if consecutiveErrors >= maxConsecutiveHandlerErrors {
					return fmt.Errorf("too many consecutive handler errors: %w", err)
				}
			} else {
				consecutiveErrors = 0
			}
		}

		if st.Status == feed.Exhausted {
			return nil
		}
	}
}

func (p *GenericProvider) fetchPage(ctx context.Context, page int) (feed.Page[domain.Article], error) {
	pageURL, err := p.pageURL(page)
	if err != nil {
		return feed.Page[domain.Article]{}, &feed.MalformedResponseError{Page: page, Reason: err.Error()}
	}

	body, err := p.client.Get(ctx, p.name, pageURL, nil)
	if err != nil {
		netErr := &feed.NetworkError{Page: page, Err: err}
		var se *upstream.StatusError
		if errors.As(err, &se) {
			netErr.StatusCode = se.StatusCode
		}
		return feed.Page[domain.Article]{}, netErr
	}

	articles, info, err := p.transformer.Transform(bytes.NewReader(body))
	if err != nil {
		return feed.Page[domain.Article]{}, &feed.MalformedResponseError{Page: page, Reason: err.Error()}
	}

	fetchedAt := p.now().UTC()
	for i := range articles {
		articles[i].Source = p.name
		articles[i].ID = p.name + "_" + articles[i].ExternalID
		articles[i].FetchedAt = fetchedAt
	}

	pageNumber := info.Page
	if pageNumber == 0 {
		pageNumber = page
	}
	totalPages := info.TotalPages
	if p.pageParam == "" {
		totalPages = 1
	}
	if totalPages > p.maxPages {
		totalPages = p.maxPages
	}

	return feed.Page[domain.Article]{
		Items:      articles,
		PageNumber: pageNumber,
		TotalPages: totalPages,
	}, nil
}

func (p *GenericProvider) pageURL(page int) (string, error) {
	if p.pageParam == "" {
		return p.url, nil
	}
	u, err := url.Parse(p.url)
	if err != nil {
		return "", fmt.Errorf("invalid source url: %w", err)
	}
	q := u.Query()
	q.Set(p.pageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var _ domain.Provider = (*GenericProvider)(nil)

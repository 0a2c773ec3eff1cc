package transformer

import (
	"fmt"
	"io"
	"strings"

	"github.com/chitram/companion/internal/domain"
	"github.com/mmcdole/gofeed"
)

const RSSName = "rss"

// RSSTransformer parses RSS, Atom and JSON Feed documents. A feed document
// is always a single page.
type RSSTransformer struct {
	parser *gofeed.Parser
}

func NewRSSTransformer() *RSSTransformer {
	return &RSSTransformer{parser: gofeed.NewParser()}
}

func (t *RSSTransformer) Transform(reader io.Reader) ([]domain.Article, domain.PageInfo, error) {
	parsed, err := t.parser.Parse(reader)
	if err != nil {
		return nil, domain.PageInfo{}, fmt.Errorf("failed to parse feed: %w", err)
	}

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		externalID := strings.TrimSpace(item.GUID)
		if externalID == "" {
			externalID = strings.TrimSpace(item.Link)
		}
		if externalID == "" {
			continue
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		a := domain.Article{
			ExternalID: externalID,
			Title:      strings.TrimSpace(item.Title),
			Summary:    item.Description,
			Content:    content,
			URL:        item.Link,
			ImageURL:   itemImage(item),
			Categories: item.Categories,
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			a.PublishedAt = *item.UpdatedParsed
		}
		articles = append(articles, a)
	}

	return articles, domain.PageInfo{Page: 1, TotalPages: 1}, nil
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

package transformer

import (
	"strings"
	"testing"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Tollywood News</title>
  <item>
    <guid>tw-101</guid>
    <title> Pushpa 2 crosses 1000 crore </title>
    <link>https://news.example/pushpa-2</link>
    <description>Box office update</description>
    <category>box-office</category>
    <pubDate>Mon, 09 Dec 2024 10:00:00 GMT</pubDate>
    <enclosure url="https://img.example/pushpa.jpg" type="image/jpeg" length="100"/>
  </item>
  <item>
    <title>No id or link</title>
  </item>
  <item>
    <title>Link only</title>
    <link>https://news.example/link-only</link>
  </item>
</channel>
</rss>`

func TestRSSTransformer(t *testing.T) {
	articles, info, err := NewRSSTransformer().Transform(strings.NewReader(sampleRSS))
	require.NoError(t, err)

	assert.Equal(t, domain.PageInfo{Page: 1, TotalPages: 1}, info)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "tw-101", first.ExternalID)
	assert.Equal(t, "Pushpa 2 crosses 1000 crore", first.Title)
	assert.Equal(t, "Box office update", first.Content)
	assert.Equal(t, "https://img.example/pushpa.jpg", first.ImageURL)
	assert.Equal(t, []string{"box-office"}, first.Categories)
	assert.Equal(t, time.Date(2024, 12, 9, 10, 0, 0, 0, time.UTC), first.PublishedAt.UTC())

	assert.Equal(t, "https://news.example/link-only", articles[1].ExternalID)
	assert.Empty(t, articles[1].ImageURL)
}

func TestRSSTransformer_Invalid(t *testing.T) {
	_, _, err := NewRSSTransformer().Transform(strings.NewReader("not a feed"))
	assert.Error(t, err)
}

func TestNewsJSONTransformer(t *testing.T) {
	body := `{
		"page": 2,
		"total_pages": 4,
		"articles": [
			{"_id": "a1", "title": "RRR sequel", "content": "` + strings.Repeat("x", 250) + `", "url": "https://n.example/a1", "published_at": "2024-05-01T08:00:00Z"},
			{"title": "keyed by url", "url": "https://n.example/a2", "image_url": "https://img.example/a2.png", "summary": "short"},
			{"title": "unkeyed"}
		]
	}`

	articles, info, err := NewNewsJSONTransformer().Transform(strings.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, domain.PageInfo{Page: 2, TotalPages: 4}, info)
	require.Len(t, articles, 2)
	assert.Equal(t, "a1", articles[0].ExternalID)
	assert.Len(t, []rune(articles[0].Summary), 203)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), articles[0].PublishedAt)
	assert.Equal(t, "https://n.example/a2", articles[1].ExternalID)
	assert.Equal(t, "short", articles[1].Summary)
}

func TestNewsJSONTransformer_MissingPaging(t *testing.T) {
	tests := []string{
		`{"page": 1, "total_pages": 2}`,
		`{"page": 1, "articles": []}`,
	}
	for _, body := range tests {
		_, _, err := NewNewsJSONTransformer().Transform(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrMissingPaging, body)
	}
}

func TestGetTransformer(t *testing.T) {
	tr, err := GetTransformer("rss")
	require.NoError(t, err)
	assert.IsType(t, &RSSTransformer{}, tr)

	tr, err = GetTransformer("newsjson")
	require.NoError(t, err)
	assert.IsType(t, &NewsJSONTransformer{}, tr)

	_, err = GetTransformer("pulselive")
	assert.Error(t, err)
}

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

const DefaultGoogleNewsURL = "https://news.google.com/rss/search"

// GoogleNews reads the Google News RSS search feed for the Indian English
// edition.
type GoogleNews struct {
	baseURL string
	client  *http.Client
}

func NewGoogleNews(baseURL string, client *http.Client) *GoogleNews {
	if baseURL == "" {
		baseURL = DefaultGoogleNewsURL
	}
	return &GoogleNews{baseURL: strings.TrimRight(baseURL, "/"), client: orDefault(client)}
}

func (g *GoogleNews) Search(ctx context.Context, query string, limit int) ([]NewsItem, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", "en-IN")
	params.Set("gl", "IN")
	params.Set("ceid", "IN:en")

	resp, err := get(ctx, g.client, g.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("google news: %w", err)
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("google news: parse feed: %w", err)
	}

	items := make([]NewsItem, 0, limit)
	for _, entry := range feed.Items {
		if len(items) == limit {
			break
		}
		items = append(items, NewsItem{
			Title:     entry.Title,
			Published: entry.Published,
			Link:      entry.Link,
		})
	}
	return items, nil
}

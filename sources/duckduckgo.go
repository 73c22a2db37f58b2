package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the JavaScript-free results page.
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
}

func NewDuckDuckGo(baseURL string, client *http.Client) *DuckDuckGo {
	if baseURL == "" {
		baseURL = DefaultDuckDuckGoURL
	}
	return &DuckDuckGo{baseURL: baseURL, client: orDefault(client)}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	resp, err := get(ctx, d.client, d.baseURL+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse html: %w", err)
	}

	results := make([]SearchResult, 0, limit)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) == limit {
			return false
		}
		anchor := s.Find(".result__a").First()
		link, _ := anchor.Attr("href")
		results = append(results, SearchResult{
			Title:   strings.TrimSpace(anchor.Text()),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Link:    link,
		})
		return true
	})
	return results, nil
}

// Package sources fetches live context from public information services.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrNotFound  = errors.New("no results")
	ErrAmbiguous = errors.New("ambiguous query")
)

// userAgent is sent to services that reject Go's default client string.
const userAgent = "Mozilla/5.0 (compatible; GHostAI/1.0; +https://github.com/Krish-Depani)"

type NewsItem struct {
	Title     string
	Published string
	Link      string
}

type SearchResult struct {
	Title   string
	Snippet string
	Link    string
}

type NewsSource interface {
	Search(ctx context.Context, query string, limit int) ([]NewsItem, error)
}

type EncyclopediaSource interface {
	Summary(ctx context.Context, query string, sentences int) (string, error)
}

type WebSearchSource interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// AmbiguousError is returned when a query lands on a disambiguation page.
// Options lists candidate titles in page order.
type AmbiguousError struct {
	Query   string
	Options []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%q may refer to: %s", e.Query, strings.Join(e.Options, ", "))
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

// NewHTTPClient returns the client shared by the news, encyclopedia and web
// search sources.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

func orDefault(client *http.Client) *http.Client {
	if client == nil {
		return NewHTTPClient()
	}
	return client
}

func get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	return resp, nil
}

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const DefaultWikipediaURL = "https://en.wikipedia.org/w/api.php"

// Wikipedia resolves a free-text query to the best matching article and
// returns the first sentences of its introduction.
type Wikipedia struct {
	apiURL string
	client *http.Client
}

func NewWikipedia(apiURL string, client *http.Client) *Wikipedia {
	if apiURL == "" {
		apiURL = DefaultWikipediaURL
	}
	return &Wikipedia{apiURL: apiURL, client: orDefault(client)}
}

func (w *Wikipedia) Summary(ctx context.Context, query string, sentences int) (string, error) {
	title, err := w.search(ctx, query)
	if err != nil {
		return "", err
	}

	var page struct {
		Query struct {
			Pages []struct {
				Title     string `json:"title"`
				Missing   bool   `json:"missing"`
				Extract   string `json:"extract"`
				PageProps struct {
					Disambiguation *string `json:"disambiguation"`
				} `json:"pageprops"`
			} `json:"pages"`
		} `json:"query"`
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts|pageprops")
	params.Set("ppprop", "disambiguation")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("exsentences", fmt.Sprint(sentences))
	params.Set("redirects", "1")
	params.Set("titles", title)
	if err := w.call(ctx, params, &page); err != nil {
		return "", err
	}

	if len(page.Query.Pages) == 0 || page.Query.Pages[0].Missing {
		return "", fmt.Errorf("wikipedia %q: %w", title, ErrNotFound)
	}
	p := page.Query.Pages[0]

	if p.PageProps.Disambiguation != nil {
		options, err := w.links(ctx, p.Title)
		if err != nil {
			return "", err
		}
		return "", &AmbiguousError{Query: query, Options: options}
	}

	extract := strings.TrimSpace(p.Extract)
	if extract == "" {
		return "", fmt.Errorf("wikipedia %q: empty extract: %w", title, ErrNotFound)
	}
	return extract, nil
}

func (w *Wikipedia) search(ctx context.Context, query string) (string, error) {
	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "1")
	if err := w.call(ctx, params, &result); err != nil {
		return "", err
	}

	if len(result.Query.Search) == 0 {
		return "", fmt.Errorf("wikipedia %q: %w", query, ErrNotFound)
	}
	return result.Query.Search[0].Title, nil
}

func (w *Wikipedia) links(ctx context.Context, title string) ([]string, error) {
	var result struct {
		Query struct {
			Pages []struct {
				Links []struct {
					Title string `json:"title"`
				} `json:"links"`
			} `json:"pages"`
		} `json:"query"`
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "links")
	params.Set("plnamespace", "0")
	params.Set("pllimit", "50")
	params.Set("titles", title)
	if err := w.call(ctx, params, &result); err != nil {
		return nil, err
	}

	var options []string
	for _, p := range result.Query.Pages {
		for _, l := range p.Links {
			options = append(options, l.Title)
		}
	}
	return options, nil
}

func (w *Wikipedia) call(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	resp, err := get(ctx, w.client, w.apiURL+"?"+params.Encode())
	if err != nil {
		return fmt.Errorf("wikipedia: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("wikipedia: decode: %w", err)
	}
	return nil
}

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>news</title>
<item><title>Story one</title><link>https://n.test/1</link><pubDate>Mon, 06 Jan 2025 10:00:00 GMT</pubDate></item>
<item><title>Story two</title><link>https://n.test/2</link><pubDate>Mon, 06 Jan 2025 11:00:00 GMT</pubDate></item>
<item><title>Story three</title><link>https://n.test/3</link><pubDate>Mon, 06 Jan 2025 12:00:00 GMT</pubDate></item>
</channel></rss>`

func TestGoogleNews_Search(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{"q": q.Get("q"), "hl": q.Get("hl"), "gl": q.Get("gl"), "ceid": q.Get("ceid")}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	items, err := NewGoogleNews(srv.URL, srv.Client()).Search(context.Background(), "iphone price", 2)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"q": "iphone price", "hl": "en-IN", "gl": "IN", "ceid": "IN:en"}, gotQuery)
	require.Len(t, items, 2)
	assert.Equal(t, NewsItem{
		Title:     "Story one",
		Published: "Mon, 06 Jan 2025 10:00:00 GMT",
		Link:      "https://n.test/1",
	}, items[0])
	assert.Equal(t, "Story two", items[1].Title)
}

func TestGoogleNews_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "not a feed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("definitely not xml"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewGoogleNews(srv.URL, srv.Client()).Search(context.Background(), "q", 5)
			assert.Error(t, err)
		})
	}
}

package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/sources"
	"github.com/rs/zerolog"
)

const (
	maxItems             = 5
	summarySentences     = 5
	disambigSentences    = 4
	dateLayout           = "2006-01-02"
	promptTemplate       = "\nSYSTEM NOTE:\nToday's date: %s\n\nLIVE INFORMATION:\n%s\n\nIMPORTANT:\n- Prefer LIVE INFORMATION when answering\n- Cite uncertainty if data is incomplete\n\nUSER QUESTION:\n%s\n"
	newsBlockHeader      = "GOOGLE NEWS (retrieved %s):\n%s"
	wikipediaBlockHeader = "WIKIPEDIA (retrieved %s):\n%s"
	searchBlockHeader    = "WEB SEARCH (DuckDuckGo, retrieved %s):\n%s"
)

// Pipeline composes news, encyclopedia and web search context into a single
// grounded prompt. Any source may be nil; a nil or failing source contributes
// nothing.
type Pipeline struct {
	Classifier Classifier
	News       sources.NewsSource
	Wiki       sources.EncyclopediaSource
	Web        sources.WebSearchSource
	Now        func() time.Time

	log zerolog.Logger
}

func NewPipeline(news sources.NewsSource, wiki sources.EncyclopediaSource, web sources.WebSearchSource, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		Classifier: KeywordClassifier{},
		News:       news,
		Wiki:       wiki,
		Web:        web,
		Now:        time.Now,
		log:        log.With().Str("component", "enrich").Logger(),
	}
}

// Enrich returns message unchanged when no intent matches or every lookup
// comes back empty.
func (p *Pipeline) Enrich(ctx context.Context, message string) string {
	intents := p.Classifier.Intents(message)
	if !intents.Any() {
		return message
	}

	today := p.Now().UTC().Format(dateLayout)
	var blocks []string

	if intents.News {
		if text := p.news(ctx, message); text != "" {
			blocks = append(blocks, fmt.Sprintf(newsBlockHeader, today, text))
		}
	}

	if intents.Encyclopedic {
		if text := WikipediaLookup(ctx, p.Wiki, message, p.log); text != "" {
			blocks = append(blocks, fmt.Sprintf(wikipediaBlockHeader, today, text))
		}
	}

	if len(blocks) == 0 && intents.Search {
		if text := p.search(ctx, message); text != "" {
			blocks = append(blocks, fmt.Sprintf(searchBlockHeader, today, text))
		}
	}

	if len(blocks) == 0 {
		return message
	}

	return fmt.Sprintf(promptTemplate, today, strings.Join(blocks, "\n\n"), message)
}

func (p *Pipeline) news(ctx context.Context, query string) string {
	if p.News == nil {
		return ""
	}

	items, err := p.News.Search(ctx, query, maxItems)
	if err != nil {
		p.log.Warn().Err(err).Str("source", "news").Msg("lookup failed")
		return ""
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s (%s)\n  %s", item.Title, item.Published, item.Link))
	}
	return strings.Join(lines, "\n")
}

func (p *Pipeline) search(ctx context.Context, query string) string {
	if p.Web == nil {
		return ""
	}

	results, err := p.Web.Search(ctx, query, maxItems)
	if err != nil {
		p.log.Warn().Err(err).Str("source", "web").Msg("lookup failed")
		return ""
	}

	var lines []string
	for _, r := range results {
		if r.Title == "" || r.Snippet == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s\n  %s", r.Title, r.Snippet))
	}
	return strings.Join(lines, "\n")
}

// WikipediaLookup fetches a five sentence summary. A disambiguation page is
// retried once with its first option at four sentences. Failures yield "".
func WikipediaLookup(ctx context.Context, wiki sources.EncyclopediaSource, query string, log zerolog.Logger) string {
	if wiki == nil {
		return ""
	}

	summary, err := wiki.Summary(ctx, query, summarySentences)
	if err == nil {
		return summary
	}

	var amb *sources.AmbiguousError
	if !errors.As(err, &amb) || len(amb.Options) == 0 {
		log.Warn().Err(err).Str("source", "wikipedia").Msg("lookup failed")
		return ""
	}

	summary, err = wiki.Summary(ctx, amb.Options[0], disambigSentences)
	if err != nil {
		log.Warn().Err(err).Str("source", "wikipedia").Str("option", amb.Options[0]).Msg("disambiguation retry failed")
		return ""
	}
	return summary
}

package enrich

import (
	"context"
	"fmt"

	"github.com/Krish-Depani/ghost-ai-server/sources"
	"github.com/rs/zerolog"
)

const (
	guardSentences = 4
	guardTemplate  = "\nYou are a factual assistant.\n\nRules:\n- If you are NOT 100%% sure of a fact, say \"I don’t have verified information\".\n- Do NOT guess years, names, statistics.\n- Do NOT mix multiple years.\n- Use ONLY verified context if provided.\n\nVerified context:\n%s\n"
)

// Guard builds the system instruction that keeps the model from guessing
// facts. It runs independently of Pipeline.
type Guard struct {
	wiki sources.EncyclopediaSource
	log  zerolog.Logger
}

func NewGuard(wiki sources.EncyclopediaSource, log zerolog.Logger) *Guard {
	return &Guard{wiki: wiki, log: log.With().Str("component", "guard").Logger()}
}

// SystemPrompt reports false when message is not a fact query. The verified
// context is the summary for the exact message, or empty on failure.
func (g *Guard) SystemPrompt(ctx context.Context, message string) (string, bool) {
	if !IsFactQuery(message) {
		return "", false
	}
	return fmt.Sprintf(guardTemplate, g.verifiedContext(ctx, message)), true
}

func (g *Guard) verifiedContext(ctx context.Context, message string) string {
	if g.wiki == nil {
		return ""
	}
	summary, err := g.wiki.Summary(ctx, message, guardSentences)
	if err != nil {
		g.log.Warn().Err(err).Str("source", "wikipedia").Msg("verified context unavailable")
		return ""
	}
	return summary
}

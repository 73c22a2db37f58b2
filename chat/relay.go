package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/Krish-Depani/ghost-ai-server/store"
	"github.com/rs/zerolog"
)

// ErrorChunk is the only thing a client sees when the model fails.
const ErrorChunk = "⚠️ AI backend error"

const HistoryLimit = 20

type Enricher interface {
	Enrich(ctx context.Context, message string) string
}

type Guard interface {
	SystemPrompt(ctx context.Context, message string) (string, bool)
}

type Relay struct {
	completer Completer
	enricher  Enricher
	guard     Guard
	messages  store.Messages
	log       zerolog.Logger
	now       func() time.Time
}

// NewRelay accepts a nil completer; every stream then ends with ErrorChunk.
func NewRelay(completer Completer, enricher Enricher, guard Guard, messages store.Messages, log zerolog.Logger) *Relay {
	return &Relay{
		completer: completer,
		enricher:  enricher,
		guard:     guard,
		messages:  messages,
		log:       log.With().Str("component", "chat").Logger(),
		now:       time.Now,
	}
}

// Stream stores the user's message, forwards the grounded prompt to the model
// and passes every non-empty delta to emit. The bot reply is stored only when
// the model finishes cleanly and every chunk reached emit.
func (r *Relay) Stream(ctx context.Context, userID, convo, text string, emit func(chunk string) error) error {
	if convo == "" {
		convo = models.DefaultConvo
	}

	if err := r.save(ctx, userID, models.SenderUser, convo, text); err != nil {
		return fmt.Errorf("save user message: %w", err)
	}

	if r.completer == nil {
		r.log.Error().Str("user", userID).Msg("chat requested but no model is configured")
		return errors.Join(ErrNotConfigured, emit(ErrorChunk))
	}

	stream, err := r.completer.Stream(ctx, r.prompt(ctx, text))
	if err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("model stream failed to start")
		return errors.Join(err, emit(ErrorChunk))
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.log.Error().Err(err).Str("user", userID).Int("received", reply.Len()).Msg("model stream broke")
			return errors.Join(err, emit(ErrorChunk))
		}
		if chunk == "" {
			continue
		}
		if err := emit(chunk); err != nil {
			return fmt.Errorf("emit chunk: %w", err)
		}
		reply.WriteString(chunk)
	}

	if err := r.save(ctx, userID, models.SenderBot, convo, reply.String()); err != nil {
		r.log.Error().Err(err).Str("user", userID).Msg("failed to save bot reply")
	}
	return nil
}

// History returns the most recent messages, newest first.
func (r *Relay) History(ctx context.Context, userID string) ([]models.Message, error) {
	return r.messages.RecentMessages(ctx, userID, HistoryLimit)
}

func (r *Relay) prompt(ctx context.Context, text string) []Message {
	var msgs []Message
	if r.guard != nil {
		if system, ok := r.guard.SystemPrompt(ctx, text); ok {
			msgs = append(msgs, Message{Role: RoleSystem, Content: system})
		}
	}

	content := text
	if r.enricher != nil {
		content = r.enricher.Enrich(ctx, text)
	}
	return append(msgs, Message{Role: RoleUser, Content: content})
}

func (r *Relay) save(ctx context.Context, userID, sender, convo, text string) error {
	return r.messages.AddMessage(ctx, &models.Message{
		UserID:    userID,
		Sender:    sender,
		Text:      text,
		Convo:     convo,
		CreatedAt: r.now().UTC(),
	})
}

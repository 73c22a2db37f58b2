package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/Krish-Depani/ghost-ai-server/validators"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ChatRelay is implemented by chat.Relay.
type ChatRelay interface {
	Stream(ctx context.Context, userID, convo, text string, emit func(chunk string) error) error
	History(ctx context.Context, userID string) ([]models.Message, error)
}

type ChatController struct {
	relay ChatRelay
	log   zerolog.Logger
}

func NewChatController(relay ChatRelay, log zerolog.Logger) *ChatController {
	return &ChatController{relay: relay, log: log.With().Str("component", "chat").Logger()}
}

type HistoryItem struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Convo  string `json:"convo"`
}

// History returns a bare JSON array, newest message first.
func (cc *ChatController) History(c *gin.Context) {
	messages, err := cc.relay.History(c.Request.Context(), currentUser(c))
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch history", nil, "Database error")
		return
	}

	items := make([]HistoryItem, 0, len(messages))
	for _, m := range messages {
		items = append(items, HistoryItem{Sender: m.Sender, Text: m.Text, Convo: m.Convo})
	}
	c.JSON(http.StatusOK, items)
}

type streamFrame struct {
	Chunk string `json:"chunk"`
}

// Stream answers with server-sent events, one {"chunk": ...} frame per model
// delta. Headers are committed on the first frame so that failures before it
// can still be reported as JSON.
func (cc *ChatController) Stream(c *gin.Context) {
	req, ok := validators.ValidateChatRequest(c)
	if !ok {
		return
	}
	userID := currentUser(c)

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		h := c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}

	emit := func(chunk string) error {
		start()
		payload, err := json.Marshal(streamFrame{Chunk: chunk})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
			return err
		}
		c.Writer.Flush()
		return c.Request.Context().Err()
	}

	err := cc.relay.Stream(c.Request.Context(), userID, req.Convo, req.Message, emit)
	if err != nil {
		cc.log.Warn().Err(err).Str("user", userID).Bool("streamed", started).Msg("chat stream ended with error")
		if !started {
			sendResponse(c, http.StatusInternalServerError, "Chat failed", nil, "Failed to process message")
		}
		return
	}

	start()
	c.Writer.WriteHeaderNow()
}

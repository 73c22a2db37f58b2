package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/mailer"
	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/Krish-Depani/ghost-ai-server/session"
	"github.com/Krish-Depani/ghost-ai-server/utils"
	"github.com/gin-gonic/gin"
)

const (
	sessionCookie   = "session_token"
	ctxUserID       = "userID"
	ctxSessionToken = "sessionToken"
)

type AuthResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// TokenStore is the auth token cache, implemented by database.RedisClient.
type TokenStore interface {
	SetSession(ctx context.Context, token, userID string, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (string, error)
	DeleteSession(ctx context.Context, token string) error
	RevokeUserSessions(ctx context.Context, userID, keep string) (int, error)
	MarkTokenUsed(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

type SessionRegistrar interface {
	Register(ctx context.Context, userID string, meta session.RequestMetadata)
}

// sendResponse is a helper function to send consistent JSON responses
func sendResponse(c *gin.Context, status int, message string, data interface{}, err interface{}) {
	c.JSON(status, AuthResponse{
		Status:  status,
		Message: message,
		Data:    data,
		Error:   err,
	})
}

// redeemOnce reports whether a signed token is being used for the first
// time. The marker lives until the token would have expired anyway.
func redeemOnce(ctx context.Context, tokens TokenStore, claims *utils.TokenClaims) (bool, error) {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return false, nil
	}
	return tokens.MarkTokenUsed(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func requestMetadata(c *gin.Context) session.RequestMetadata {
	return session.RequestMetadata{
		UserAgent: c.GetHeader("User-Agent"),
		IP:        c.ClientIP(),
	}
}

func userData(user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"email":        user.Email,
		"name":         user.Name,
		"photo":        user.Photo,
		"verified":     user.Verified,
		"theme":        user.Theme,
		"has_password": user.PasswordHash != "",
		"created_at":   user.CreatedAt,
	}
}

func sendEmail(ctx context.Context, m mailer.Mailer, to string, render func() (mailer.Email, error)) error {
	email, err := render()
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return m.Send(ctx, to, email.Subject, email.Body)
}

type cookieSettings struct {
	ttl    time.Duration
	secure bool
}

func (s cookieSettings) set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(s.ttl.Seconds()), "/", "", s.secure, true)
}

func (s cookieSettings) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", s.secure, true)
}

package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/export"
	"github.com/Krish-Depani/ghost-ai-server/mailer"
	"github.com/Krish-Depani/ghost-ai-server/store"
	"github.com/Krish-Depani/ghost-ai-server/utils"
	"github.com/Krish-Depani/ghost-ai-server/validators"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type UserController struct {
	store          store.Store
	tokens         TokenStore
	mailer         mailer.Mailer
	signer         *utils.TokenSigner
	exporter       export.Exporter
	publicURL      string
	emailChangeTTL time.Duration
	cookie         cookieSettings
	log            zerolog.Logger
}

// NewUserController accepts a nil exporter; chat export then answers 503.
func NewUserController(s store.Store, tokens TokenStore, m mailer.Mailer, signer *utils.TokenSigner, exporter export.Exporter, publicURL string, emailChangeTTL time.Duration, secureCookie bool, log zerolog.Logger) *UserController {
	return &UserController{
		store:          s,
		tokens:         tokens,
		mailer:         m,
		signer:         signer,
		exporter:       exporter,
		publicURL:      strings.TrimRight(publicURL, "/"),
		emailChangeTTL: emailChangeTTL,
		cookie:         cookieSettings{secure: secureCookie},
		log:            log.With().Str("component", "user").Logger(),
	}
}

type SessionResponse struct {
	ID        uint      `json:"id"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	Location  string    `json:"location"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	CurrentIP bool      `json:"current_ip"`
}

func (uc *UserController) GetCurrentUser(c *gin.Context) {
	user, err := uc.store.GetUser(c.Request.Context(), currentUser(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendResponse(c, http.StatusNotFound, "User not found", nil, "User does not exist")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch user", nil, "Database error")
		return
	}

	sendResponse(c, http.StatusOK, "User details retrieved", map[string]interface{}{
		"user": userData(user),
	}, nil)
}

func (uc *UserController) GetActiveSessions(c *gin.Context) {
	sessions, err := uc.store.ListActiveSessions(c.Request.Context(), currentUser(c))
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch sessions", nil, "Database error")
		return
	}

	clientIP := c.ClientIP()
	sessionResponses := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		sessionResponses = append(sessionResponses, SessionResponse{
			ID:        s.ID,
			Device:    s.Device,
			Browser:   s.Browser,
			Location:  s.Location,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			CurrentIP: s.IPAddress == clientIP,
		})
	}

	sendResponse(c, http.StatusOK, "Active sessions retrieved successfully", map[string]interface{}{
		"sessions":              sessionResponses,
		"total_active_sessions": len(sessionResponses),
	}, nil)
}

// LogoutOthers deactivates every session recorded from another IP and
// revokes every auth token except the caller's.
func (uc *UserController) LogoutOthers(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	deactivated, err := uc.store.DeactivateSessionsExceptIP(ctx, userID, c.ClientIP())
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to log out other sessions", nil, "Database error")
		return
	}

	revoked, err := uc.tokens.RevokeUserSessions(ctx, userID, c.GetString(ctxSessionToken))
	if err != nil {
		uc.log.Error().Err(err).Str("user", userID).Msg("failed to revoke tokens")
		sendResponse(c, http.StatusInternalServerError, "Failed to log out other sessions", nil, "Failed to revoke sessions")
		return
	}

	sendResponse(c, http.StatusOK, "Other sessions logged out", map[string]interface{}{
		"deactivated": deactivated,
		"revoked":     revoked,
	}, nil)
}

func (uc *UserController) UpdateName(c *gin.Context) {
	req, ok := validators.ValidateUpdateNameRequest(c)
	if !ok {
		return
	}
	uc.update(c, "Name updated", map[string]interface{}{"name": req.Name})
}

func (uc *UserController) UpdateTheme(c *gin.Context) {
	req, ok := validators.ValidateUpdateThemeRequest(c)
	if !ok {
		return
	}
	uc.update(c, "Theme updated", map[string]interface{}{"theme": req.Theme})
}

func (uc *UserController) UpdatePassword(c *gin.Context) {
	req, ok := validators.ValidateUpdatePasswordRequest(c)
	if !ok {
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Update failed", nil, "Failed to process password")
		return
	}

	if !uc.update(c, "Password updated", map[string]interface{}{"password_hash": string(hashedPassword)}) {
		return
	}

	userID := currentUser(c)
	if err := sendEmail(c.Request.Context(), uc.mailer, userID, mailer.PasswordChangedEmail); err != nil {
		uc.log.Warn().Err(err).Str("user", userID).Msg("password changed email failed")
	}
}

func (uc *UserController) update(c *gin.Context, message string, fields map[string]interface{}) bool {
	if err := uc.store.UpdateUser(c.Request.Context(), currentUser(c), fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendResponse(c, http.StatusNotFound, "Update failed", nil, "User does not exist")
			return false
		}
		sendResponse(c, http.StatusInternalServerError, "Update failed", nil, "Database error")
		return false
	}

	sendResponse(c, http.StatusOK, message, nil, nil)
	return true
}

// RequestEmailChange mails a signed confirmation link to the new address.
// Nothing changes until the link is opened.
func (uc *UserController) RequestEmailChange(c *gin.Context) {
	req, ok := validators.ValidateChangeEmailRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c)

	if req.Email == userID {
		sendResponse(c, http.StatusBadRequest, "Email change failed", nil, "New email matches the current one")
		return
	}

	if _, err := uc.store.GetUser(ctx, req.Email); err == nil {
		sendResponse(c, http.StatusConflict, "Email change failed", nil, map[string]string{
			"field":   "email",
			"message": "A user with this email already exists",
		})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		sendResponse(c, http.StatusInternalServerError, "Email change failed", nil, "Database error")
		return
	}

	token, err := uc.signer.Sign(utils.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		Purpose:          utils.PurposeEmailChange,
		NewEmail:         req.Email,
	}, uc.emailChangeTTL)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Email change failed", nil, "Failed to create token")
		return
	}

	link := uc.publicURL + "/auth/user/email/verify/" + token
	if err := sendEmail(ctx, uc.mailer, req.Email, func() (mailer.Email, error) { return mailer.EmailChangeEmail(link) }); err != nil {
		uc.log.Error().Err(err).Str("user", userID).Msg("email change mail failed")
		sendResponse(c, http.StatusInternalServerError, "Email change failed", nil, "Failed to send verification email")
		return
	}

	sendResponse(c, http.StatusOK, "Verification email sent", nil, nil)
}

// VerifyEmailChange is reached from the mailed link and needs no session.
// Each link works once. Every token of the old identity is revoked.
func (uc *UserController) VerifyEmailChange(c *gin.Context) {
	claims, err := uc.signer.Parse(c.Param("token"), utils.PurposeEmailChange)
	if err != nil || claims.Subject == "" || claims.NewEmail == "" {
		sendResponse(c, http.StatusBadRequest, "Email change failed", nil, "Invalid or expired link")
		return
	}
	ctx := c.Request.Context()

	fresh, err := redeemOnce(ctx, uc.tokens, claims)
	if err != nil {
		uc.log.Error().Err(err).Str("user", claims.Subject).Msg("failed to record email change link")
		sendResponse(c, http.StatusInternalServerError, "Email change failed", nil, "Failed to verify link")
		return
	}
	if !fresh {
		sendResponse(c, http.StatusBadRequest, "Email change failed", nil, "This link has already been used")
		return
	}

	if err := uc.store.RenameUser(ctx, claims.Subject, claims.NewEmail); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			sendResponse(c, http.StatusConflict, "Email change failed", nil, "A user with this email already exists")
		case errors.Is(err, store.ErrNotFound):
			sendResponse(c, http.StatusNotFound, "Email change failed", nil, "User does not exist")
		default:
			sendResponse(c, http.StatusInternalServerError, "Email change failed", nil, "Database error")
		}
		return
	}

	if _, err := uc.tokens.RevokeUserSessions(ctx, claims.Subject, ""); err != nil {
		uc.log.Warn().Err(err).Str("user", claims.Subject).Msg("failed to revoke tokens after email change")
	}

	uc.cookie.clear(c)
	sendResponse(c, http.StatusOK, "Email updated, please sign in again", map[string]interface{}{
		"email": claims.NewEmail,
	}, nil)
}

// ExportChat uploads the full transcript and mails a download link, to the
// account address unless another one is given.
func (uc *UserController) ExportChat(c *gin.Context) {
	req, ok := validators.ValidateExportRequest(c)
	if !ok {
		return
	}
	if uc.exporter == nil {
		sendResponse(c, http.StatusServiceUnavailable, "Export unavailable", nil, "Chat export is not configured")
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c)

	to := req.Email
	if to == "" {
		to = userID
	}

	messages, err := uc.store.AllMessages(ctx, userID)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Export failed", nil, "Database error")
		return
	}

	link, err := uc.exporter.Export(ctx, userID, messages)
	if err != nil {
		uc.log.Error().Err(err).Str("user", userID).Msg("export upload failed")
		sendResponse(c, http.StatusBadGateway, "Export failed", nil, "Failed to store export")
		return
	}

	if err := sendEmail(ctx, uc.mailer, to, func() (mailer.Email, error) { return mailer.ExportReadyEmail(link) }); err != nil {
		uc.log.Error().Err(err).Str("user", userID).Msg("export mail failed")
		sendResponse(c, http.StatusInternalServerError, "Export failed", nil, "Failed to send export email")
		return
	}

	sendResponse(c, http.StatusOK, "Export link sent", map[string]interface{}{
		"sent_to":  to,
		"messages": len(messages),
	}, nil)
}

// DeleteAccount removes the user, sessions and messages in three separate
// passes. A failed pass does not stop the others.
func (uc *UserController) DeleteAccount(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	passes := []struct {
		name string
		run  func() error
	}{
		{"user", func() error { return uc.store.DeleteUser(ctx, userID) }},
		{"sessions", func() error { return uc.store.DeleteSessions(ctx, userID) }},
		{"messages", func() error { return uc.store.DeleteMessages(ctx, userID) }},
	}

	var failed []string
	for _, p := range passes {
		if err := p.run(); err != nil {
			uc.log.Error().Err(err).Str("user", userID).Str("pass", p.name).Msg("account deletion pass failed")
			failed = append(failed, p.name)
		}
	}

	if _, err := uc.tokens.RevokeUserSessions(ctx, userID, ""); err != nil {
		uc.log.Warn().Err(err).Str("user", userID).Msg("failed to revoke tokens after deletion")
	}
	uc.cookie.clear(c)

	if len(failed) > 0 {
		sendResponse(c, http.StatusInternalServerError, "Account partially deleted", nil, map[string]interface{}{
			"failed": failed,
		})
		return
	}
	sendResponse(c, http.StatusOK, "Account deleted", nil, nil)
}

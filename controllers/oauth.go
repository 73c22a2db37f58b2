package controllers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/Krish-Depani/ghost-ai-server/store"
	"github.com/Krish-Depani/ghost-ai-server/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthActionLogin   = "login"
	oauthActionConnect = "connect"

	oauthStateCookie      = "oauth_state"
	oauthStateTTL         = 10 * time.Minute
	DefaultGoogleUserInfo = "https://openidconnect.googleapis.com/v1/userinfo"
)

type googleProfile struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// OAuthController signs users in with Google, or links a Google profile to
// the signed-in account. State is a signed single-use token whose nonce must
// match the oauth_state cookie set on the browser that started the flow.
type OAuthController struct {
	oauth       *oauth2.Config
	userInfoURL string
	users       store.Users
	signer      *utils.TokenSigner
	auth        *AuthController
	publicURL   string
	log         zerolog.Logger
}

// NewGoogleConfig returns nil when the client credentials are missing.
func NewGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func NewOAuthController(cfg *oauth2.Config, userInfoURL string, users store.Users, signer *utils.TokenSigner, auth *AuthController, publicURL string, log zerolog.Logger) *OAuthController {
	if userInfoURL == "" {
		userInfoURL = DefaultGoogleUserInfo
	}
	return &OAuthController{
		oauth:       cfg,
		userInfoURL: userInfoURL,
		users:       users,
		signer:      signer,
		auth:        auth,
		publicURL:   strings.TrimRight(publicURL, "/"),
		log:         log.With().Str("component", "oauth").Logger(),
	}
}

func (oc *OAuthController) GoogleLogin(c *gin.Context) {
	oc.redirectToGoogle(c, utils.TokenClaims{Action: oauthActionLogin})
}

// GoogleConnect requires an authenticated session.
func (oc *OAuthController) GoogleConnect(c *gin.Context) {
	oc.redirectToGoogle(c, utils.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: currentUser(c)},
		Action:           oauthActionConnect,
	})
}

func (oc *OAuthController) redirectToGoogle(c *gin.Context, claims utils.TokenClaims) {
	if oc.oauth == nil {
		sendResponse(c, http.StatusServiceUnavailable, "Google sign-in unavailable", nil, "Google OAuth is not configured")
		return
	}

	claims.Purpose = utils.PurposeOAuthState
	claims.Nonce = uuid.NewString()
	state, err := oc.signer.Sign(claims, oauthStateTTL)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Google sign-in failed", nil, "Failed to create state")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, claims.Nonce, int(oauthStateTTL.Seconds()), "/auth/google", "", oc.auth.cookie.secure, true)

	url := oc.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "consent"))
	c.Redirect(http.StatusFound, url)
}

func (oc *OAuthController) GoogleCallback(c *gin.Context) {
	if oc.oauth == nil {
		sendResponse(c, http.StatusServiceUnavailable, "Google sign-in unavailable", nil, "Google OAuth is not configured")
		return
	}
	ctx := c.Request.Context()

	nonce, _ := c.Cookie(oauthStateCookie)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, "", -1, "/auth/google", "", oc.auth.cookie.secure, true)

	if reason := c.Query("error"); reason != "" {
		sendResponse(c, http.StatusBadRequest, "Google sign-in failed", nil, reason)
		return
	}

	claims, err := oc.signer.Parse(c.Query("state"), utils.PurposeOAuthState)
	if err != nil || nonce == "" || subtle.ConstantTimeCompare([]byte(nonce), []byte(claims.Nonce)) != 1 {
		sendResponse(c, http.StatusBadRequest, "Google sign-in failed", nil, "Invalid or expired state")
		return
	}

	fresh, err := redeemOnce(ctx, oc.auth.tokens, claims)
	if err != nil {
		oc.log.Error().Err(err).Msg("failed to record oauth state")
		sendResponse(c, http.StatusInternalServerError, "Google sign-in failed", nil, "Failed to verify state")
		return
	}
	if !fresh {
		sendResponse(c, http.StatusBadRequest, "Google sign-in failed", nil, "Invalid or expired state")
		return
	}

	token, err := oc.oauth.Exchange(ctx, c.Query("code"))
	if err != nil {
		oc.log.Warn().Err(err).Msg("code exchange failed")
		sendResponse(c, http.StatusBadGateway, "Google sign-in failed", nil, "Code exchange failed")
		return
	}

	profile, err := oc.fetchProfile(ctx, token)
	if err != nil {
		oc.log.Warn().Err(err).Msg("userinfo request failed")
		sendResponse(c, http.StatusBadGateway, "Google sign-in failed", nil, "Failed to read Google profile")
		return
	}
	if profile.Email == "" || !profile.EmailVerified {
		sendResponse(c, http.StatusBadRequest, "Google sign-in failed", nil, "Google account has no verified email")
		return
	}

	if claims.Action == oauthActionConnect {
		oc.connect(c, claims.Subject, profile)
		return
	}
	oc.login(c, profile)
}

func (oc *OAuthController) connect(c *gin.Context, userID string, profile *googleProfile) {
	if userID == "" {
		sendResponse(c, http.StatusBadRequest, "Google connect failed", nil, "Invalid or expired state")
		return
	}

	err := oc.users.UpdateUser(c.Request.Context(), userID, map[string]interface{}{
		"name":  profile.Name,
		"photo": profile.Picture,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendResponse(c, http.StatusNotFound, "Google connect failed", nil, "User not found")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Google connect failed", nil, "Database error")
		return
	}

	c.Redirect(http.StatusFound, oc.publicURL+"/settings")
}

func (oc *OAuthController) login(c *gin.Context, profile *googleProfile) {
	ctx := c.Request.Context()
	email := strings.ToLower(profile.Email)

	user, err := oc.users.GetUser(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		err = oc.users.CreateUser(ctx, &models.User{
			Email:    email,
			Name:     profile.Name,
			Photo:    profile.Picture,
			Verified: true,
		})
	case err == nil && !user.Verified:
		err = oc.users.UpdateUser(ctx, email, map[string]interface{}{"verified": true})
	}
	if err != nil {
		oc.log.Error().Err(err).Str("user", email).Msg("google login failed")
		sendResponse(c, http.StatusInternalServerError, "Google sign-in failed", nil, "Database error")
		return
	}

	if err := oc.auth.startSession(c, email); err != nil {
		sendResponse(c, http.StatusInternalServerError, "Google sign-in failed", nil, "Failed to create session")
		return
	}

	c.Redirect(http.StatusFound, oc.publicURL+"/chat")
}

func (oc *OAuthController) fetchProfile(ctx context.Context, token *oauth2.Token) (*googleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oc.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := oc.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &profile, nil
}

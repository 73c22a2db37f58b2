package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/database"
	"github.com/Krish-Depani/ghost-ai-server/mailer"
	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/Krish-Depani/ghost-ai-server/otp"
	"github.com/Krish-Depani/ghost-ai-server/store"
	"github.com/Krish-Depani/ghost-ai-server/validators"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	users     store.Users
	tokens    TokenStore
	otps      otp.Store
	mailer    mailer.Mailer
	registrar SessionRegistrar
	cookie    cookieSettings
	log       zerolog.Logger
}

func NewAuthController(users store.Users, tokens TokenStore, otps otp.Store, m mailer.Mailer, registrar SessionRegistrar, sessionTTL time.Duration, secureCookie bool, log zerolog.Logger) *AuthController {
	return &AuthController{
		users:     users,
		tokens:    tokens,
		otps:      otps,
		mailer:    m,
		registrar: registrar,
		cookie:    cookieSettings{ttl: sessionTTL, secure: secureCookie},
		log:       log.With().Str("component", "auth").Logger(),
	}
}

// Register creates an unverified account and mails a signup code. Signing up
// again before verifying replaces the pending name and password.
func (ac *AuthController) Register(c *gin.Context) {
	req, ok := validators.ValidateRegisterRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Registration failed", nil, "Failed to process password")
		return
	}

	existing, err := ac.users.GetUser(ctx, req.Email)
	switch {
	case err == nil && existing.Verified:
		sendResponse(c, http.StatusConflict, "Registration failed", nil, map[string]string{
			"field":   "email",
			"message": "A user with this email already exists",
		})
		return
	case err == nil:
		err = ac.users.UpdateUser(ctx, req.Email, map[string]interface{}{
			"name":          req.Name,
			"password_hash": string(hashedPassword),
		})
	case errors.Is(err, store.ErrNotFound):
		err = ac.users.CreateUser(ctx, &models.User{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: string(hashedPassword),
			Photo:        models.DefaultPhoto(req.Email),
		})
	}
	if err != nil {
		ac.log.Error().Err(err).Str("user", req.Email).Msg("register failed")
		sendResponse(c, http.StatusInternalServerError, "Registration failed", nil, "Database error")
		return
	}

	if err := ac.sendOTP(c, otp.PurposeSignup, req.Email); err != nil {
		sendResponse(c, http.StatusInternalServerError, "Registration failed", nil, "Failed to send verification code")
		return
	}

	sendResponse(c, http.StatusCreated, "Verification code sent", map[string]interface{}{
		"email": req.Email,
	}, nil)
}

func (ac *AuthController) Verify(c *gin.Context) {
	req, ok := validators.ValidateVerifyRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := ac.otps.Consume(ctx, otp.PurposeSignup, req.Email, req.OTP); err != nil {
		ac.otpFailure(c, "Verification failed", err)
		return
	}

	if err := ac.users.UpdateUser(ctx, req.Email, map[string]interface{}{"verified": true}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendResponse(c, http.StatusNotFound, "Verification failed", nil, "User not found")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Verification failed", nil, "Database error")
		return
	}

	sendResponse(c, http.StatusOK, "Email verified", nil, nil)
}

// Login handles user authentication
func (ac *AuthController) Login(c *gin.Context) {
	req, ok := validators.ValidateLoginRequest(c)
	if !ok {
		return
	}

	user, err := ac.users.GetUser(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendResponse(c, http.StatusUnauthorized, "Login failed", nil, map[string]string{
				"field":   "email",
				"message": "Invalid credentials",
			})
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Database error")
		return
	}

	if user.PasswordHash == "" {
		sendResponse(c, http.StatusUnauthorized, "Login failed", nil, map[string]string{
			"field":   "password",
			"message": "This account signs in with Google",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		sendResponse(c, http.StatusUnauthorized, "Login failed", nil, map[string]string{
			"field":   "password",
			"message": "Invalid credentials",
		})
		return
	}

	if !user.Verified {
		sendResponse(c, http.StatusForbidden, "Login failed", nil, map[string]string{
			"field":   "email",
			"message": "Email not verified",
		})
		return
	}

	if err := ac.startSession(c, user.Email); err != nil {
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to create session")
		return
	}

	sendResponse(c, http.StatusOK, "Login successful", map[string]interface{}{
		"user": userData(user),
	}, nil)
}

// Logout handles user logout
func (ac *AuthController) Logout(c *gin.Context) {
	sessionToken, err := c.Cookie(sessionCookie)
	if err != nil {
		sendResponse(c, http.StatusBadRequest, "Logout failed", nil, "No session found")
		return
	}

	if err := ac.tokens.DeleteSession(c.Request.Context(), sessionToken); err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			sendResponse(c, http.StatusBadRequest, "Logout failed", nil, "Invalid session")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Logout failed", nil, "Failed to delete session")
		return
	}

	ac.cookie.clear(c)
	sendResponse(c, http.StatusOK, "Logged out successfully", nil, nil)
}

func (ac *AuthController) ForgotPassword(c *gin.Context) {
	req, ok := validators.ValidateForgotPasswordRequest(c)
	if !ok {
		return
	}

	if _, err := ac.users.GetUser(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendResponse(c, http.StatusNotFound, "Password reset failed", nil, "Email not found")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Password reset failed", nil, "Database error")
		return
	}

	if err := ac.sendOTP(c, otp.PurposeReset, req.Email); err != nil {
		sendResponse(c, http.StatusInternalServerError, "Password reset failed", nil, "Failed to send verification code")
		return
	}

	sendResponse(c, http.StatusOK, "Verification code sent", nil, nil)
}

// ResetPassword also marks the address verified and signs out every device.
func (ac *AuthController) ResetPassword(c *gin.Context) {
	req, ok := validators.ValidateResetPasswordRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := ac.otps.Consume(ctx, otp.PurposeReset, req.Email, req.OTP); err != nil {
		ac.otpFailure(c, "Password reset failed", err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Password reset failed", nil, "Failed to process password")
		return
	}

	if err := ac.users.UpdateUser(ctx, req.Email, map[string]interface{}{
		"password_hash": string(hashedPassword),
		"verified":      true,
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendResponse(c, http.StatusNotFound, "Password reset failed", nil, "Email not found")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Password reset failed", nil, "Database error")
		return
	}

	if _, err := ac.tokens.RevokeUserSessions(ctx, req.Email, ""); err != nil {
		ac.log.Warn().Err(err).Str("user", req.Email).Msg("failed to revoke sessions after reset")
	}
	if err := sendEmail(ctx, ac.mailer, req.Email, mailer.PasswordChangedEmail); err != nil {
		ac.log.Warn().Err(err).Str("user", req.Email).Msg("password changed email failed")
	}

	sendResponse(c, http.StatusOK, "Password updated", nil, nil)
}

// AuthMiddleware handles authentication for protected routes
func (ac *AuthController) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken, err := c.Cookie(sessionCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, AuthResponse{
				Status:  http.StatusUnauthorized,
				Message: "Authentication required",
				Error:   "No session found",
			})
			return
		}

		userID, err := ac.tokens.GetSession(c.Request.Context(), sessionToken)
		if err != nil {
			if !errors.Is(err, database.ErrSessionNotFound) {
				ac.log.Error().Err(err).Msg("session lookup failed")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, AuthResponse{
				Status:  http.StatusUnauthorized,
				Message: "Authentication failed",
				Error:   "Invalid or expired session",
			})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxSessionToken, sessionToken)

		c.Next()
	}
}

// startSession issues the auth cookie and records the device session.
func (ac *AuthController) startSession(c *gin.Context, email string) error {
	sessionToken := uuid.New().String()
	if err := ac.tokens.SetSession(c.Request.Context(), sessionToken, email, ac.cookie.ttl); err != nil {
		ac.log.Error().Err(err).Str("user", email).Msg("failed to store auth token")
		return err
	}

	ac.cookie.set(c, sessionToken)
	ac.registrar.Register(c.Request.Context(), email, requestMetadata(c))
	return nil
}

func (ac *AuthController) sendOTP(c *gin.Context, purpose, email string) error {
	ctx := c.Request.Context()

	code, err := ac.otps.Issue(ctx, purpose, email)
	if err != nil {
		ac.log.Error().Err(err).Str("user", email).Str("purpose", purpose).Msg("failed to issue otp")
		return err
	}

	if err := sendEmail(ctx, ac.mailer, email, func() (mailer.Email, error) { return mailer.OTPEmail(code) }); err != nil {
		ac.log.Error().Err(err).Str("user", email).Str("purpose", purpose).Msg("failed to send otp")
		return err
	}
	return nil
}

func (ac *AuthController) otpFailure(c *gin.Context, message string, err error) {
	if errors.Is(err, otp.ErrInvalidCode) {
		sendResponse(c, http.StatusBadRequest, message, nil, map[string]string{
			"field":   "otp",
			"message": "Incorrect or expired code",
		})
		return
	}
	ac.log.Error().Err(err).Msg("otp check failed")
	sendResponse(c, http.StatusInternalServerError, message, nil, "Failed to verify code")
}

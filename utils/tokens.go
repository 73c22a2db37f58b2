package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	PurposeOAuthState  = "oauth_state"
	PurposeEmailChange = "email_change"
)

// TokenClaims carries the short-lived signed tokens used in links and OAuth
// round trips. Subject is the acting user's email when there is one.
type TokenClaims struct {
	jwt.RegisteredClaims
	Purpose  string `json:"purpose"`
	Action   string `json:"action,omitempty"`
	NewEmail string `json:"new_email,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

func (s *TokenSigner) Sign(claims TokenClaims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.ID = uuid.NewString()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse verifies signature, expiry and purpose.
func (s *TokenSigner) Parse(tokenString, purpose string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Package otp issues and verifies short-lived one-time codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PurposeSignup = "signup"
	PurposeReset  = "reset"

	codeDigits = 6

	// DefaultMaxAttempts is how many wrong guesses burn a live code.
	DefaultMaxAttempts = 5
)

var ErrInvalidCode = errors.New("invalid or expired code")

type Store interface {
	Issue(ctx context.Context, purpose, email string) (string, error)
	Consume(ctx context.Context, purpose, email, code string) error
}

// consumeScript deletes the key only when it holds the submitted code, so a
// code can be redeemed at most once even under concurrent requests. Wrong
// guesses are counted in KEYS[2]; reaching ARGV[2] deletes the code.
var consumeScript = redis.NewScript(`
local code = redis.call("GET", KEYS[1])
if not code then
	return 0
end
if code == ARGV[1] then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 1
end
local failures = redis.call("INCR", KEYS[2])
if failures == 1 then
	local ttl = redis.call("PTTL", KEYS[1])
	if ttl > 0 then
		redis.call("PEXPIRE", KEYS[2], ttl)
	end
end
if failures >= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1], KEYS[2])
end
return 0
`)

// RedisStore keeps one live code per purpose and email. Issuing again
// replaces the previous code.
type RedisStore struct {
	client      redis.UniversalClient
	ttl         time.Duration
	maxAttempts int
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, maxAttempts: DefaultMaxAttempts}
}

func key(purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

func attemptsKey(purpose, email string) string {
	return fmt.Sprintf("otp_attempts:%s:%s", purpose, email)
}

func (s *RedisStore) Issue(ctx context.Context, purpose, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key(purpose, email), code, s.ttl)
	pipe.Del(ctx, attemptsKey(purpose, email))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

func (s *RedisStore) Consume(ctx context.Context, purpose, email, code string) error {
	if len(code) != codeDigits {
		return ErrInvalidCode
	}

	keys := []string{key(purpose, email), attemptsKey(purpose, email)}
	ok, err := consumeScript.Run(ctx, s.client, keys, code, s.maxAttempts).Int()
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if ok == 0 {
		return ErrInvalidCode
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// RedisClient keeps auth tokens: session:<token> -> user, and a per-user set
// of live tokens so they can be revoked together.
type RedisClient struct {
	client redis.UniversalClient
}

func GetRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisClient{client: client}, nil
}

func NewRedisClient(client redis.UniversalClient) *RedisClient {
	return &RedisClient{client: client}
}

func (r *RedisClient) Client() redis.UniversalClient {
	return r.client
}

func sessionKey(token string) string {
	return "session:" + token
}

func userSessionsKey(userID string) string {
	return "user_sessions:" + userID
}

func (r *RedisClient) SetSession(ctx context.Context, token, userID string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(token), userID, ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), token)
	pipe.Expire(ctx, userSessionsKey(userID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisClient) GetSession(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (r *RedisClient) DeleteSession(ctx context.Context, token string) error {
	userID, err := r.GetSession(ctx, token)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	pipe.SRem(ctx, userSessionsKey(userID), token)
	_, err = pipe.Exec(ctx)
	return err
}

// RevokeUserSessions drops every token of userID except keep and returns how
// many were removed. Pass an empty keep to revoke all of them.
func (r *RedisClient) RevokeUserSessions(ctx context.Context, userID, keep string) (int, error) {
	tokens, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return 0, err
	}

	pipe := r.client.TxPipeline()
	removed := 0
	for _, token := range tokens {
		if token == keep {
			continue
		}
		pipe.Del(ctx, sessionKey(token))
		pipe.SRem(ctx, userSessionsKey(userID), token)
		removed++
	}
	if removed == 0 {
		return 0, nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

func usedTokenKey(id string) string {
	return "used_token:" + id
}

// MarkTokenUsed records the id of a one-time signed token for ttl. It
// returns false when the id was already recorded.
func (r *RedisClient) MarkTokenUsed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl < time.Second {
		ttl = time.Second
	}
	return r.client.SetNX(ctx, usedTokenKey(id), 1, ttl).Result()
}

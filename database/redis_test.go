package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisForTest(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, NewRedisClient(client)
}

func TestRedisClient_SessionLifecycle(t *testing.T) {
	_, rc := newRedisForTest(t)
	ctx := context.Background()

	require.NoError(t, rc.SetSession(ctx, "tok-1", "alice@example.com", time.Hour))

	userID, err := rc.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", userID)

	require.NoError(t, rc.DeleteSession(ctx, "tok-1"))

	_, err = rc.GetSession(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisClient_SessionExpires(t *testing.T) {
	m, rc := newRedisForTest(t)
	ctx := context.Background()

	require.NoError(t, rc.SetSession(ctx, "tok-1", "alice@example.com", time.Minute))
	m.FastForward(2 * time.Minute)

	_, err := rc.GetSession(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisClient_DeleteUnknownSession(t *testing.T) {
	_, rc := newRedisForTest(t)
	assert.ErrorIs(t, rc.DeleteSession(context.Background(), "nope"), ErrSessionNotFound)
}

func TestRedisClient_RevokeUserSessions(t *testing.T) {
	_, rc := newRedisForTest(t)
	ctx := context.Background()

	for _, tok := range []string{"a", "b", "c"} {
		require.NoError(t, rc.SetSession(ctx, tok, "alice@example.com", time.Hour))
	}
	require.NoError(t, rc.SetSession(ctx, "z", "bob@example.com", time.Hour))

	removed, err := rc.RevokeUserSessions(ctx, "alice@example.com", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = rc.GetSession(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = rc.GetSession(ctx, "b")
	assert.NoError(t, err)
	_, err = rc.GetSession(ctx, "z")
	assert.NoError(t, err)

	removed, err = rc.RevokeUserSessions(ctx, "alice@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestRedisClient_MarkTokenUsed(t *testing.T) {
	m, rc := newRedisForTest(t)
	ctx := context.Background()

	first, err := rc.MarkTokenUsed(ctx, "jti-1", 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 30*time.Minute, m.TTL("used_token:jti-1"))

	again, err := rc.MarkTokenUsed(ctx, "jti-1", 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := rc.MarkTokenUsed(ctx, "jti-2", 0)
	require.NoError(t, err)
	assert.True(t, other)
	assert.Equal(t, time.Second, m.TTL("used_token:jti-2"))
}

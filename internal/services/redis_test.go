package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betinho-miniapp/internal/config"
	"betinho-miniapp/internal/services"
)

func newRedisService(t *testing.T) (*services.RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc := services.NewRedisServiceFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { svc.Close() })
	return svc, mr
}

func TestNewRedisService(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	svc, err := services.NewRedisService(ctx, &config.Config{RedisURL: mr.Addr()})
	require.NoError(t, err)
	defer svc.Close()
	assert.NoError(t, svc.Client().Ping(ctx).Err())

	mr.Close()
	_, err = services.NewRedisService(ctx, &config.Config{RedisURL: mr.Addr()})
	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	svc, mr := newRedisService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := svc.CheckRateLimit(ctx, player, "faucet", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, err := svc.CheckRateLimit(ctx, player, "faucet", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CheckRateLimit(ctx, player, "pick", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Hour + time.Second)
	ok, err = svc.CheckRateLimit(ctx, player, "faucet", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.ClearRateLimit(ctx, player, "pick"))
	assert.False(t, mr.Exists("ratelimit:"+player+":pick"))
}

func TestLoginRecords(t *testing.T) {
	svc, mr := newRedisService(t)
	ctx := context.Background()

	rec := services.LoginRecord{SessionID: "s1", Address: player, CreatedAt: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, svc.StoreLogin(ctx, rec, time.Minute))

	got, err := svc.GetLogin(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	assert.Equal(t, time.Minute, mr.TTL("session:s1"))

	require.NoError(t, svc.DeleteLogin(ctx, "s1"))
	_, err = svc.GetLogin(ctx, "s1")
	assert.ErrorIs(t, err, redis.Nil)
}

package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/isp-support/internal/config"
)

func TestNewRedisReportsUnreachableServer(t *testing.T) {
	r, err := NewRedis(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, zap.NewNop())
	require.Error(t, err)
	require.NotNil(t, r)
	require.NotNil(t, r.Client)
	defer r.Close()

	assert.Error(t, r.Ping(context.Background()))
}

func TestNilRedisPing(t *testing.T) {
	var r *Redis
	assert.EqualError(t, r.Ping(context.Background()), "redis client not configured")
	assert.NotPanics(t, r.Close)
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescreener/pkg/config"
	"github.com/wonny/valuescreener/pkg/redis"
)

func TestFromConfig(t *testing.T) {
	rdb, err := redis.New(&config.Config{})
	require.NoError(t, err)

	t.Run("disabled", func(t *testing.T) {
		cfg := &config.Config{}
		assert.Nil(t, FromConfig(cfg, rdb))
	})

	t.Run("local when redis disabled", func(t *testing.T) {
		cfg := &config.Config{API: config.APIConfig{RateLimitRPS: 2, RateLimitBurst: 1}}
		_, ok := FromConfig(cfg, rdb).(*Local)
		assert.True(t, ok)
	})

	t.Run("local when redis missing", func(t *testing.T) {
		cfg := &config.Config{API: config.APIConfig{RateLimitRPS: 2}}
		_, ok := FromConfig(cfg, nil).(*Local)
		assert.True(t, ok)
	})
}

func TestLocal_Wait(t *testing.T) {
	l := NewLocal(1000, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestLocal_WaitCancelled(t *testing.T) {
	l := NewLocal(0.001, 1)
	require.NoError(t, l.Wait(context.Background())) // consume burst

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx))
}

package redisclient

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
)

func testRedisConfig(t *testing.T) config.RedisConfig {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return config.RedisConfig{Host: mr.Host(), Port: port}
}

func TestNewVerifiesConnection(t *testing.T) {
	cli, err := New(testRedisConfig(t))
	require.NoError(t, err)
	defer cli.Close()

	assert.NoError(t, cli.Verify(context.Background()))
}

func TestNewRefusesUnreachableServer(t *testing.T) {
	_, err := New(config.RedisConfig{Host: "127.0.0.1", Port: 1, DialTimeout: 50 * time.Millisecond})
	assert.Error(t, err)
}

func TestNewKeepsReadTimeoutAboveClaimPoll(t *testing.T) {
	cfg := testRedisConfig(t)
	cfg.ReadTimeout = time.Second

	cli, err := New(cfg)
	require.NoError(t, err)
	defer cli.Close()

	assert.Equal(t, minReadTimeout, cli.Raw().Options().ReadTimeout)
}

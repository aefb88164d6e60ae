package queue

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/redisclient"
)

func newTestRedisQueue(t *testing.T, lease time.Duration, capacity int) (*RedisJobQueue, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cli, err := redisclient.New(config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	return NewRedisJobQueue(cli, lease, capacity), cli.Raw()
}

func TestRedisQueueEnqueueCapacity(t *testing.T) {
	q, _ := newTestRedisQueue(t, time.Minute, 1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	assert.ErrorIs(t, q.Enqueue(ctx, "job-2"), ErrQueueFull)
}

func TestRedisQueueRemoveOnlyWhilePending(t *testing.T) {
	q, raw := newTestRedisQueue(t, time.Minute, 0)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))

	removed, err := q.Remove(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, removed)

	// A claimed descriptor lives in the working list, not pending; removal
	// must miss so cancellation cannot touch an in-flight job.
	require.NoError(t, raw.LPush(ctx, workingKey, "job-2").Err())
	removed, err = q.Remove(ctx, "job-2")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRedisQueueAckReleasesClaim(t *testing.T) {
	q, raw := newTestRedisQueue(t, time.Minute, 0)
	ctx := context.Background()

	require.NoError(t, raw.LPush(ctx, workingKey, "job-1").Err())
	require.NoError(t, raw.ZAdd(ctx, leasesKey, redis.Z{
		Score:  float64(time.Now().Add(time.Minute).Unix()),
		Member: "job-1",
	}).Err())

	require.NoError(t, q.Ack(ctx, &Claim{JobID: "job-1"}))

	assert.Equal(t, int64(0), raw.LLen(ctx, workingKey).Val())
	assert.Equal(t, int64(0), raw.ZCard(ctx, leasesKey).Val())
}

func TestRedisQueueReclaimsExpiredLease(t *testing.T) {
	q, raw := newTestRedisQueue(t, time.Minute, 0)
	ctx := context.Background()

	require.NoError(t, raw.LPush(ctx, workingKey, "job-1").Err())
	require.NoError(t, raw.ZAdd(ctx, leasesKey, redis.Z{
		Score:  float64(time.Now().Add(-time.Minute).Unix()),
		Member: "job-1",
	}).Err())

	n, err := q.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := raw.LRange(ctx, pendingKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, pending)
	assert.Equal(t, int64(0), raw.LLen(ctx, workingKey).Val())
	assert.Equal(t, int64(0), raw.ZCard(ctx, leasesKey).Val())
}

func TestRedisQueueLeasesOrphanedClaims(t *testing.T) {
	q, raw := newTestRedisQueue(t, time.Minute, 0)
	ctx := context.Background()

	// A claimer that died between the move and the lease write leaves the
	// descriptor in the working list with no lease entry.
	require.NoError(t, raw.LPush(ctx, workingKey, "job-1").Err())

	n, err := q.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	score, err := raw.ZScore(ctx, leasesKey, "job-1").Result()
	require.NoError(t, err)
	assert.Greater(t, score, float64(time.Now().Unix()))

	// Once that recovery lease lapses the normal sweep requeues the job.
	require.NoError(t, raw.ZAdd(ctx, leasesKey, redis.Z{
		Score:  float64(time.Now().Add(-time.Second).Unix()),
		Member: "job-1",
	}).Err())

	n, err = q.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := raw.LRange(ctx, pendingKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, pending)
}

func TestRedisQueueOrphanLeaseDoesNotTouchHeldLeases(t *testing.T) {
	q, raw := newTestRedisQueue(t, time.Minute, 0)
	ctx := context.Background()

	deadline := float64(time.Now().Add(30 * time.Minute).Unix())
	require.NoError(t, raw.LPush(ctx, workingKey, "job-1").Err())
	require.NoError(t, raw.ZAdd(ctx, leasesKey, redis.Z{Score: deadline, Member: "job-1"}).Err())

	n, err := q.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	score, err := raw.ZScore(ctx, leasesKey, "job-1").Result()
	require.NoError(t, err)
	assert.Equal(t, deadline, score)
}

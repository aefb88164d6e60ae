package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
	"github.com/Patricklolilol/ffmpeg-service/pkg/redisclient"
)

const (
	pendingKey = "jobs:pending"
	workingKey = "jobs:working"
	leasesKey  = "jobs:leases"

	// dequeuePollTimeout bounds each BLMOVE so Dequeue can notice ctx
	// cancellation between waits.
	dequeuePollTimeout = 2 * time.Second
)

// RedisJobQueue is a lease-based queue shared by multiple worker processes.
// Pending jobs live in a list; a claimed job is moved to a working list and
// tracked in a sorted set scored by its lease deadline. Jobs whose lease
// lapses without an Ack are pushed back to pending by the reclaim loop.
type RedisJobQueue struct {
	cli      *redis.Client
	lease    time.Duration
	capacity int

	closed bool
	mu     sync.RWMutex
}

// NewRedisJobQueue builds a redis-backed queue. capacity <= 0 means
// unbounded; lease <= 0 falls back to 30 minutes.
func NewRedisJobQueue(cli *redisclient.Client, lease time.Duration, capacity int) *RedisJobQueue {
	if lease <= 0 {
		lease = 30 * time.Minute
	}
	return &RedisJobQueue{
		cli:      cli.Raw(),
		lease:    lease,
		capacity: capacity,
	}
}

func (q *RedisJobQueue) Enqueue(ctx context.Context, jobID string) error {
	if q.isClosed() {
		return ErrQueueClosed
	}

	if q.capacity > 0 {
		size, err := q.cli.LLen(ctx, pendingKey).Result()
		if err != nil {
			return err
		}
		if size >= int64(q.capacity) {
			return ErrQueueFull
		}
	}

	return q.cli.LPush(ctx, pendingKey, jobID).Err()
}

func (q *RedisJobQueue) Dequeue(ctx context.Context) (*Claim, error) {
	for {
		if q.isClosed() {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		jobID, err := q.cli.BLMove(ctx, pendingKey, workingKey, "RIGHT", "LEFT", dequeuePollTimeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}

		deadline := time.Now().Add(q.lease)
		if err := q.cli.ZAdd(ctx, leasesKey, redis.Z{
			Score:  float64(deadline.Unix()),
			Member: jobID,
		}).Err(); err != nil {
			// The descriptor already sits in the working list without a lease.
			// Push it back so it is not stranded; the reclaim sweep covers the
			// case where this rollback fails too.
			pipe := q.cli.TxPipeline()
			pipe.LRem(ctx, workingKey, 1, jobID)
			pipe.LPush(ctx, pendingKey, jobID)
			if _, rerr := pipe.Exec(ctx); rerr != nil {
				logger.Warn("claim rollback failed", map[string]interface{}{
					"job_id": jobID,
					"error":  rerr.Error(),
				})
			}
			return nil, err
		}

		return &Claim{JobID: jobID}, nil
	}
}

func (q *RedisJobQueue) Ack(ctx context.Context, claim *Claim) error {
	pipe := q.cli.TxPipeline()
	pipe.LRem(ctx, workingKey, 1, claim.JobID)
	pipe.ZRem(ctx, leasesKey, claim.JobID)
	_, err := pipe.Exec(ctx)
	return err
}

func (q *RedisJobQueue) Extend(ctx context.Context, claim *Claim) error {
	deadline := time.Now().Add(q.lease)
	return q.cli.ZAdd(ctx, leasesKey, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: claim.JobID,
	}).Err()
}

func (q *RedisJobQueue) Remove(ctx context.Context, jobID string) (bool, error) {
	removed, err := q.cli.LRem(ctx, pendingKey, 1, jobID).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (q *RedisJobQueue) Size(ctx context.Context) (int, error) {
	size, err := q.cli.LLen(ctx, pendingKey).Result()
	if err != nil {
		return 0, err
	}
	return int(size), nil
}

func (q *RedisJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// ReclaimExpired moves jobs with lapsed leases back to the pending list so
// another worker picks them up. Returns the number of jobs reclaimed.
func (q *RedisJobQueue) ReclaimExpired(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	expired, err := q.cli.ZRangeByScore(ctx, leasesKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, jobID := range expired {
		pipe := q.cli.TxPipeline()
		pipe.LRem(ctx, workingKey, 1, jobID)
		pipe.ZRem(ctx, leasesKey, jobID)
		pipe.LPush(ctx, pendingKey, jobID)
		if _, err := pipe.Exec(ctx); err != nil {
			return reclaimed, err
		}
		reclaimed++
	}

	if err := q.leaseOrphans(ctx); err != nil {
		return reclaimed, err
	}
	return reclaimed, nil
}

// leaseOrphans covers the claimer crashing between the move into the working
// list and the lease write: such descriptors sit in the working list with no
// lease entry and would otherwise never be swept. Each one is given a fresh
// lease so the next sweep retires it through the normal expiry path. ZAddNX
// keeps a racing claimer's own lease write authoritative.
func (q *RedisJobQueue) leaseOrphans(ctx context.Context) error {
	working, err := q.cli.LRange(ctx, workingKey, 0, -1).Result()
	if err != nil {
		return err
	}

	deadline := float64(time.Now().Add(q.lease).Unix())
	for _, jobID := range working {
		err := q.cli.ZScore(ctx, leasesKey, jobID).Err()
		if err == nil {
			continue
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
		if err := q.cli.ZAddNX(ctx, leasesKey, redis.Z{
			Score:  deadline,
			Member: jobID,
		}).Err(); err != nil {
			return err
		}
		logger.Warn("leased orphaned claim", map[string]interface{}{
			"job_id": jobID,
		})
	}
	return nil
}

func (q *RedisJobQueue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// ReclaimTask periodically sweeps expired leases back to pending.
type ReclaimTask struct {
	queue    *RedisJobQueue
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReclaimTask creates the lease-reclaim background task.
func NewReclaimTask(queue *RedisJobQueue, interval time.Duration) *ReclaimTask {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReclaimTask{queue: queue, interval: interval}
}

func (t *ReclaimTask) Name() string { return "queue-reclaimer" }

func (t *ReclaimTask) Start(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := t.queue.ReclaimExpired(ctx)
				if err != nil {
					logger.Warn("lease reclaim sweep failed", map[string]interface{}{
						"error": err.Error(),
					})
					continue
				}
				if n > 0 {
					logger.Info("reclaimed expired job leases", map[string]interface{}{
						"count": n,
					})
				}
			}
		}
	}()
	return nil
}

func (t *ReclaimTask) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.done != nil {
		<-t.done
	}
	return nil
}

package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/entity"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/repo"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/redisclient"
)

// RedisJobRepository stores each job as one JSON value under a prefixed key
// with a sliding TTL. Records expire out of redis on their own; an expired
// record reads back as repo.ErrNotFound.
type RedisJobRepository struct {
	cli       *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisJobRepository builds the redis-backed record store.
func NewRedisJobRepository(cli *redisclient.Client, cfg config.JobsConfig) *RedisJobRepository {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "job:"
	}
	ttl := cfg.RecordTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisJobRepository{
		cli:       cli.Raw(),
		keyPrefix: prefix,
		ttl:       ttl,
	}
}

func (r *RedisJobRepository) Create(ctx context.Context, job *entity.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	ok, err := r.cli.SetNX(ctx, r.key(job.ID), payload, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", repo.ErrUnavailable, err)
	}
	if !ok {
		return repo.ErrAlreadyExists
	}
	return nil
}

func (r *RedisJobRepository) Get(ctx context.Context, id string) (*entity.Job, error) {
	payload, err := r.cli.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", repo.ErrUnavailable, err)
	}

	var job entity.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// Merge reads the record, applies the partial update and writes the whole
// record back. The single-writer-per-job rule makes read-modify-write safe
// here; the SET itself is atomic so readers never see a partial record.
func (r *RedisJobRepository) Merge(ctx context.Context, id string, update repo.JobUpdate) (*entity.Job, error) {
	job, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := repo.ApplyUpdate(job, update)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("marshal job %s: %w", id, err)
	}
	if err := r.cli.Set(ctx, r.key(id), payload, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", repo.ErrUnavailable, err)
	}
	return next, nil
}

func (r *RedisJobRepository) key(id string) string {
	return r.keyPrefix + id
}

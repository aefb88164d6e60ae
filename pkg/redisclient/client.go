package redisclient

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultWriteTimeout = 3 * time.Second

	// The queue claims jobs with blocking reads that poll for up to two
	// seconds; the socket read timeout must stay above that or every idle
	// claim wait surfaces as an i/o timeout.
	minReadTimeout = 3 * time.Second
)

// Client wraps the go-redis client with this service's connection defaults.
// Both the job store and the job queue share the one configured DB.
type Client struct {
	native *redis.Client
}

// New builds a redis client from service configuration and verifies the
// connection before handing it out.
func New(cfg config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr: cfg.GetRedisAddr(),
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}

	opts.DialTimeout = pickDuration(cfg.DialTimeout, defaultDialTimeout)
	opts.ReadTimeout = pickDuration(cfg.ReadTimeout, minReadTimeout)
	if opts.ReadTimeout < minReadTimeout {
		opts.ReadTimeout = minReadTimeout
	}
	opts.WriteTimeout = pickDuration(cfg.WriteTimeout, defaultWriteTimeout)

	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cli := redis.NewClient(opts)
	c := &Client{native: cli}
	if err := c.Verify(context.Background()); err != nil {
		_ = cli.Close()
		return nil, err
	}

	return c, nil
}

// Verify pings the server within the dial timeout.
func (c *Client) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	return c.native.Ping(ctx).Err()
}

// Raw exposes the underlying go-redis client for the store and queue layers.
func (c *Client) Raw() *redis.Client {
	return c.native
}

// Close stops the redis client and releases pooled connections.
func (c *Client) Close() error {
	return c.native.Close()
}

func pickDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

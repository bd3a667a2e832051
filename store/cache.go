package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/ai-triage/errors"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// Cache keeps the latest pipeline result per ticket for fast reads.
type Cache interface {
	SetResult(ctx context.Context, r *ticket.Result) error
	// Result fails with errors.ErrNotFound on a miss.
	Result(ctx context.Context, ticketID string) (*ticket.Result, error)
	Close() error
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	TTL      time.Duration // Time-to-live for keys (0 means no expiration)
}

// RedisCache implements Cache with go-redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a Redis-backed result cache
func NewRedisCache(cfg RedisConfig) *RedisCache {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "triage:"
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
}

func (c *RedisCache) key(ticketID string) string {
	return c.prefix + "result:" + ticketID
}

func (c *RedisCache) SetResult(ctx context.Context, r *ticket.Result) error {
	if r == nil || r.TicketID == "" {
		return fmt.Errorf("result without ticket id: %w", errors.ErrInvalidInput)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.client.Set(ctx, c.key(r.TicketID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result in Redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Result(ctx context.Context, ticketID string) (*ticket.Result, error) {
	data, err := c.client.Get(ctx, c.key(ticketID)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("result %s: %w", ticketID, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	var r ticket.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &r, nil
}

// Delete drops a cached result.
func (c *RedisCache) Delete(ctx context.Context, ticketID string) error {
	return c.client.Del(ctx, c.key(ticketID)).Err()
}

// Ping checks if Redis connection is alive
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

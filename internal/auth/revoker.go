package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// Revoker remembers logged-out tokens until they expire.
type Revoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisRevoker keeps the blacklist in Redis so every instance sees it.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker connects to the Redis server at url and pings it.
func NewRedisRevoker(ctx context.Context, url string) (*RedisRevoker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisRevoker{client: client}, nil
}

// NewRedisRevokerFromClient wraps an existing client.
func NewRedisRevokerFromClient(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, blacklistPrefix+token, 1, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the Redis connection pool.
func (r *RedisRevoker) Close() error {
	return r.client.Close()
}

// MemoryRevoker keeps the blacklist in process. Used when no Redis URL is
// configured.
type MemoryRevoker struct {
	c *cache.Cache
}

// NewMemoryRevoker creates an in-process blacklist.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{c: cache.New(time.Hour, 10*time.Minute)}
}

func (r *MemoryRevoker) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.c.Set(blacklistPrefix+token, struct{}{}, ttl)
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, token string) (bool, error) {
	_, found := r.c.Get(blacklistPrefix + token)
	return found, nil
}

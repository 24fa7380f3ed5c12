package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "orbis:analyze:"

// RedisStore shares cached responses between server replicas
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	addr   string
}

// NewRedisStore connects to Redis and verifies the connection with a ping
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address not configured")
	}

	slog.Info("Initializing Redis cache", "addr", addr, "db", db)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	slog.Info("Redis cache connected", "addr", addr)

	return &RedisStore{client: client, ttl: ttl, addr: addr}, nil
}

// Get retrieves an item; a missing key is a miss, not an error
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores an item with the store's TTL
func (r *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err()
}

// HealthCheck pings Redis
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Stats returns connection pool statistics
func (r *RedisStore) Stats() map[string]interface{} {
	pool := r.client.PoolStats()
	return map[string]interface{}{
		"backend":     "redis",
		"addr":        r.addr,
		"ttl_seconds": r.ttl.Seconds(),
		"hits":        pool.Hits,
		"misses":      pool.Misses,
		"timeouts":    pool.Timeouts,
		"total_conns": pool.TotalConns,
		"idle_conns":  pool.IdleConns,
	}
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// New picks Redis when an address is configured and reachable, otherwise memory
func New(ttl time.Duration, redisAddr, redisPassword string, redisDB int) Store {
	if redisAddr != "" {
		store, err := NewRedisStore(redisAddr, redisPassword, redisDB, ttl)
		if err == nil {
			return store
		}
		slog.Warn("Redis cache unavailable, falling back to in-memory cache", "error", err)
	}
	return NewMemoryStore(ttl)
}

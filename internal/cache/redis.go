package cache

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the slice of go-redis the store needs; satisfied by
// *redis.Client and by test fakes.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis backs the Store contract with a shared Redis instance so
// cached records survive process restarts.
type Redis struct {
	client RedisClient
}

func NewRedis(client RedisClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("redis cache read error for %s: %v", key, err)
		}
		return nil, false
	}
	return payload, true
}

func (r *Redis) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, payload, ttl).Err()
}

// Dial connects to Redis from an address or redis:// URL. Returns nil
// when the server is unreachable so callers can fall back to the
// in-memory store.
func Dial(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("failed to parse REDIS_URL: %v", err)
			return nil
		}
		opts = parsed
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable at %s, using in-memory cache: %v", addr, err)
		return nil
	}
	log.Println("Connected to Redis")
	return client
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores response bodies in redis with native key expiry
type RedisCache struct {
	client *redis.Client
	opts   Options
}

// RedisOptions describes the redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Options  Options
}

// NewRedis connects to redis and verifies the connection with PING
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return NewRedisWithClient(client, opts.Options), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *redis.Client, opts Options) *RedisCache {
	return &RedisCache{client: client, opts: opts}
}

// Get returns the stored body
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := r.client.Get(ctx, r.opts.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Set stores body; a negative ttl stores without expiry
func (r *RedisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	ttl = r.opts.ttl(ttl)
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.opts.Prefix+key, body, ttl).Err()
}

// Delete removes key
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.opts.Prefix+key).Err()
}

// Clear removes every key under the prefix
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.opts.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

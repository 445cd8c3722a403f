// Package cache stores successful GET response bodies so repeated identical
// queries can skip the network. Backends are in-memory and redis.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/conduit-lang/conduit-sdk/pkg/sdk/config"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache is a response body store
type Cache interface {
	// Get returns the body stored under key or ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores body under key; a zero ttl uses the backend default
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error

	// Delete removes key
	Delete(ctx context.Context, key string) error

	// Clear removes every key under the backend prefix
	Clear(ctx context.Context) error

	// Close releases background resources
	Close() error
}

// Options holds settings shared by the backends
type Options struct {
	// TTL is used when Set is called with a zero ttl; negative means no expiry
	TTL time.Duration
	// Prefix namespaces every key
	Prefix string
}

// DefaultOptions returns a five minute TTL under the conduit-sdk: prefix
func DefaultOptions() Options {
	return Options{
		TTL:    5 * time.Minute,
		Prefix: "conduit-sdk:",
	}
}

func (o Options) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return o.TTL
	}
	return ttl
}

// Key returns the cache key of a request: the upper-cased method and the full
// URL including its query string
func Key(method, rawURL string) string {
	return strings.ToUpper(method) + ":" + rawURL
}

// IsMiss reports whether err is a cache miss
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// New builds the backend named in cfg. It returns a nil Cache for the none backend.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	opts := Options{TTL: cfg.TTL, Prefix: cfg.Prefix}

	switch cfg.Backend {
	case "", config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return NewMemory(opts), nil
	case config.CacheRedis:
		rc, err := NewRedis(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Options:  opts,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, errors.New("unknown cache backend: " + cfg.Backend)
	}
}

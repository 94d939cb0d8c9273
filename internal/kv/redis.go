package kv

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by go-redis. Keys are namespaced under a
// prefix and expire after a TTL so idle clients do not accumulate.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*Redis)

func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = strings.Trim(prefix, ":") }
}

func WithTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:    rdb,
		prefix: "portfolio:contact",
		ttl:    2 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenRedis parses a redis:// URL and returns a connected store.
func OpenRedis(ctx context.Context, url string, opts ...RedisOption) (*Redis, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(options)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return NewRedis(rdb, opts...), nil
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.key(key), value, r.ttl).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

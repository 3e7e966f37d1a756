package cache

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// redisClient implementa Client sobre go-redis.
type redisClient struct {
	prefix string
	c      *rdb.Client
}

// NewRedis crea un cliente de cache sobre Redis.
func NewRedis(cfg Config) Client {
	return &redisClient{
		prefix: cfg.Prefix,
		c:      rdb.NewClient(&rdb.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}),
	}
}

// Raw expone el *redis.Client subyacente (lo usa el rate limiter).
func (r *redisClient) Raw() *rdb.Client { return r.c }

// RedisRaw extrae el *redis.Client de un Client si el backend es Redis.
// Retorna nil para otros backends.
func RedisRaw(c Client) *rdb.Client {
	if rc, ok := c.(*redisClient); ok {
		return rc.Raw()
	}
	return nil
}

func (r *redisClient) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *redisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := r.c.Get(ctx, r.key(key)).Result()
	if err == rdb.Nil {
		return "", ErrNotFound
	}
	return v, err
}

func (r *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.c.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *redisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.c.SetNX(ctx, r.key(key), value, ttl).Result()
}

func (r *redisClient) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, r.key(key)).Err()
}

func (r *redisClient) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *redisClient) Close() error { return r.c.Close() }

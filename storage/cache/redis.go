package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/core"
)

const scanCount = 100

// Redis is a core.Cache backed by a redis server. Every key is namespaced with prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ core.Cache = (*Redis)(nil) // interface compliance check

// NewRedis connects to the redis server at url (e.g. redis://localhost:6379/0) and pings it.
func NewRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrCacheMiss
		}
		return nil, errors.Wrapf(err, "getting %s", key)
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return errors.Wrapf(r.client.Set(ctx, r.key(key), val, ttl).Err(), "setting %s", key)
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(k))
	}
	return errors.Wrap(r.client.Del(ctx, full...).Err(), "deleting keys")
}

// DeletePrefix walks the keyspace with SCAN and unlinks matches in batches.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, r.key(prefix)+"*", scanCount).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanCount {
			if err := r.client.Unlink(ctx, batch...).Err(); err != nil {
				return errors.Wrap(err, "unlinking keys")
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scanning keys")
	}
	if len(batch) > 0 {
		return errors.Wrap(r.client.Unlink(ctx, batch...).Err(), "unlinking keys")
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is a Redis-backed ephemeral key-value store with TTL support. It holds
// gate tickets for deployments that run more than one BFF replica.
type KV struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewKV(rdb redis.UniversalClient) *KV {
	return &KV{rdb: rdb}
}

// WithPrefix namespaces every key, e.g. per environment.
func (k *KV) WithPrefix(p string) *KV { k.prefix = p; return k }

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := k.rdb.Get(ctx, k.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.rdb.Set(ctx, k.prefix+key, value, ttl).Err()
}

func (k *KV) Del(ctx context.Context, key string) error {
	return k.rdb.Del(ctx, k.prefix+key).Err()
}

// Take reads and deletes key in one round trip, so a ticket redeemed by two
// replicas at once is only handed to one of them.
func (k *KV) Take(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := k.rdb.GetDel(ctx, k.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Ping checks connectivity; the devserver calls it at startup.
func (k *KV) Ping(ctx context.Context) error {
	return k.rdb.Ping(ctx).Err()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries as JSON strings and tracks tag membership in a set
// per tag, so invalidation is one SMEMBERS plus a single DEL.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

func (r *Redis) Set(ctx context.Context, tag, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, raw, 0)
	pipe.SAdd(ctx, "tag:"+tag, key)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) InvalidateTag(ctx context.Context, tag string) error {
	keys, err := r.client.SMembers(ctx, "tag:"+tag).Result()
	if err != nil {
		return err
	}
	keys = append(keys, "tag:"+tag)
	return r.client.Del(ctx, keys...).Err()
}

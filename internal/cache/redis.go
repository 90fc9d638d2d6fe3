package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// invalidateScript drops every member of the tag set, the set itself, and
// bumps the generation in one step so no Set can slip in between.
// KEYS[1] tag set, KEYS[2] generation counter.
var invalidateScript = goredis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[1])
local deleted = 0
for i = 1, #members, 500 do
  deleted = deleted + redis.call('DEL', unpack(members, i, math.min(i + 499, #members)))
end
redis.call('DEL', KEYS[1])
redis.call('INCR', KEYS[2])
return deleted
`)

// setIfGenerationScript writes the value and its tag membership only while
// the generation matches. KEYS[1] value, KEYS[2] generation, KEYS[3] tag set;
// ARGV value, ttl in milliseconds (0 for none), expected generation.
var setIfGenerationScript = goredis.NewScript(`
if tonumber(redis.call('GET', KEYS[2]) or '0') ~= tonumber(ARGV[3]) then
  return 0
end
if tonumber(ARGV[2]) > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
else
  redis.call('SET', KEYS[1], ARGV[1])
end
redis.call('SADD', KEYS[3], KEYS[1])
return 1
`)

type RedisCache struct {
	client *goredis.Client
	prefix string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

func (r *RedisCache) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisCache) tagKey(tag string) string {
	return r.key("tag:" + tag)
}

func (r *RedisCache) generationKey(tag string) string {
	return r.key("gen:" + tag)
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(val, dest)
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fullKey := r.key(key)
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, fullKey, data, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, r.tagKey(tag), fullKey)
		}
		return nil
	})
	return err
}

func (r *RedisCache) Generation(ctx context.Context, tag string) (int64, error) {
	n, err := r.client.Get(ctx, r.generationKey(tag)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return n, err
}

func (r *RedisCache) SetIfGeneration(ctx context.Context, key string, value interface{}, ttl time.Duration, tag string, generation int64) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	keys := []string{r.key(key), r.generationKey(tag), r.tagKey(tag)}
	stored, err := setIfGenerationScript.Run(ctx, r.client, keys, data, ttl.Milliseconds(), generation).Int64()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// InvalidateTag deletes every key stored under tag and reports how many existed.
func (r *RedisCache) InvalidateTag(ctx context.Context, tag string) (int, error) {
	deleted, err := invalidateScript.Run(ctx, r.client, []string{r.tagKey(tag), r.generationKey(tag)}).Int64()
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend is the primary Recent-Track Cache backend: a
// score-ordered sorted set keyed by timestamp, per spec §4.5's
// "sorted collection keyed by timestamp (score-ordered set) in an
// external key/value store". Grounded on original_source's
// app/services/cache.py, which uses the equivalent Redis
// zadd/zremrangebyrank/expire calls.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend wraps an existing go-redis client. key is the
// sorted-set key all cache entries are stored under.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	return &RedisBackend{client: client, key: key}
}

func (r *RedisBackend) Add(ctx context.Context, e Entry, maxSize int, ttl time.Duration) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, r.key, redis.Z{Score: e.Timestamp, Member: payload})
	if maxSize > 0 {
		// Keep only the newest maxSize members: remove everything
		// below rank -(maxSize) from the top (ZREMRANGEBYRANK with a
		// negative stop keeps the highest-scored maxSize members).
		pipe.ZRemRangeByRank(ctx, r.key, 0, int64(-maxSize-1))
	}
	if ttl > 0 {
		pipe.Expire(ctx, r.key, ttl)
	}
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("cache: redis add: %w", err)
	}
	return nil
}

func (r *RedisBackend) Recent(ctx context.Context, limit int, ttl time.Duration, now time.Time) ([]Entry, error) {
	minScore := "-inf"
	if ttl > 0 {
		minScore = fmt.Sprintf("%f", float64(now.Add(-ttl).Unix()))
	}
	opt := &redis.ZRangeBy{Min: minScore, Max: "+inf"}
	if limit > 0 {
		opt.Count = int64(limit)
	}
	// Highest score (most recent) first.
	members, err := r.client.ZRevRangeByScore(ctx, r.key, opt).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: redis recent: %w", err)
	}
	return decodeAll(members)
}

func (r *RedisBackend) Range(ctx context.Context, startS, endS float64) ([]Entry, error) {
	members, err := r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%f", startS),
		Max: fmt.Sprintf("%f", endS),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: redis range: %w", err)
	}
	return decodeAll(members)
}

func (r *RedisBackend) All(ctx context.Context) ([]Entry, error) {
	members, err := r.client.ZRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: redis all: %w", err)
	}
	return decodeAll(members)
}

func (r *RedisBackend) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("cache: redis clear: %w", err)
	}
	return nil
}

// Healthy pings Redis. A failure here is what triggers the silent
// degrade-to-memory path in Cache.active, per spec §4.5/§7.7.
func (r *RedisBackend) Healthy(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisBackend) Name() string { return "redis" }

func decodeAll(members []string) ([]Entry, error) {
	out := make([]Entry, 0, len(members))
	for _, m := range members {
		var e Entry
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			continue // malformed member: skip rather than fail the whole read
		}
		out = append(out, e)
	}
	return out, nil
}

var _ Backend = (*RedisBackend)(nil)

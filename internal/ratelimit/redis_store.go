package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one sorted set per (action, key) scored by unix millis.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func (s *RedisStore) key(action, key string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return prefix + action + ":" + key
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func (s *RedisStore) Count(ctx context.Context, action, key string, since time.Time) (int64, error) {
	return s.Client.ZCount(ctx, s.key(action, key), millis(since), "+inf").Result()
}

func (s *RedisStore) Oldest(ctx context.Context, action, key string, since time.Time) (time.Time, error) {
	zs, err := s.Client.ZRangeByScoreWithScores(ctx, s.key(action, key), &redis.ZRangeBy{
		Min:   millis(since),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, err
	}
	if len(zs) == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(int64(zs[0].Score)), nil
}

func (s *RedisStore) Record(ctx context.Context, action, key string, at time.Time, window time.Duration) error {
	k := s.key(action, key)
	pipe := s.Client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
	pipe.ZRemRangeByScore(ctx, k, "-inf", "("+millis(at.Add(-window)))
	pipe.Expire(ctx, k, window)
	_, err := pipe.Exec(ctx)
	return err
}

package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "antinuke:window:"

// KEYS[1] window key
// ARGV[1] now (unix ms), ARGV[2] prune cutoff (inclusive), ARGV[3] member,
// ARGV[4] ttl ms, ARGV[5] breach threshold (0 disables), ARGV[6] append flag
var windowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
if ARGV[6] == '1' then
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[3])
end
local n = redis.call('ZCARD', KEYS[1])
local threshold = tonumber(ARGV[5])
if threshold > 0 and n >= threshold then
	redis.call('DEL', KEYS[1])
	return {n, 1}
end
if n > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return {n, 0}
`)

// RedisCounterStore keeps each window in a sorted set scored by millisecond
// timestamp so several engine processes can share counters. All mutations of
// one key run inside a single Lua script and are therefore atomic.
type RedisCounterStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCounterStore connects and pings before returning.
func NewRedisCounterStore(ctx context.Context, opts *redis.Options, prefix string) (*RedisCounterStore, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCounterStoreFromClient(client, prefix), nil
}

func NewRedisCounterStoreFromClient(client redis.UniversalClient, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = redisKeyPrefix
	}
	return &RedisCounterStore{client: client, prefix: prefix}
}

func (s *RedisCounterStore) redisKey(key CounterKey) string {
	return s.prefix + key.String()
}

func (s *RedisCounterStore) run(ctx context.Context, key CounterKey, now time.Time, window time.Duration, threshold int, appendNow bool) (int, bool, error) {
	if window <= 0 {
		return 0, false, ErrInvalidWindow
	}
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()
	flag := "0"
	if appendNow {
		flag = "1"
	}

	res, err := windowScript.Run(ctx, s.client, []string{s.redisKey(key)},
		nowMs, cutoff, uuid.NewString(), window.Milliseconds(), threshold, flag,
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("window script for %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("window script for %s: unexpected reply %v", key, res)
	}
	return int(res[0]), res[1] == 1, nil
}

func (s *RedisCounterStore) Record(ctx context.Context, key CounterKey, now time.Time, window time.Duration) (int, error) {
	n, _, err := s.run(ctx, key, now, window, 0, true)
	return n, err
}

func (s *RedisCounterStore) Peek(ctx context.Context, key CounterKey, now time.Time, window time.Duration) (int, error) {
	n, _, err := s.run(ctx, key, now, window, 0, false)
	return n, err
}

func (s *RedisCounterStore) Clear(ctx context.Context, key CounterKey) error {
	return s.client.Del(ctx, s.redisKey(key)).Err()
}

func (s *RedisCounterStore) RecordBreach(ctx context.Context, key CounterKey, now time.Time, window time.Duration, threshold int) (int, bool, error) {
	if threshold < 1 {
		threshold = 1
	}
	return s.run(ctx, key, now, window, threshold, true)
}

func (s *RedisCounterStore) Close() error {
	return s.client.Close()
}

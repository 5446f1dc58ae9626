package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
	"github.com/redis/go-redis/v9"
)

// consumeScript applies one point to the bucket hash at KEYS[1].
// ARGV: now (unix ms), points, duration (ms), block duration (ms).
// Returns {allowed, used, reset_ms}.
const consumeScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local points = tonumber(ARGV[2])
local duration = tonumber(ARGV[3])
local block = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "used", "start", "blocked")
local used = tonumber(state[1]) or 0
local start = tonumber(state[2])
local blocked = tonumber(state[3]) or 0

if blocked > now then
  return {0, used, blocked - now}
end

if blocked > 0 or not start or now - start >= duration then
  used = 0
  start = now
end

used = used + 1
if used > points then
  blocked = now + block
  redis.call("HSET", key, "used", used, "start", start, "blocked", blocked)
  if block > 0 then
    redis.call("PEXPIRE", key, block)
  else
    redis.call("DEL", key)
  end
  return {0, used, block}
end

local reset = start + duration - now
redis.call("HSET", key, "used", used, "start", start, "blocked", 0)
redis.call("PEXPIRE", key, reset)
return {1, used, reset}
`

var consumeLua = redis.NewScript(consumeScript)

// RedisLimiter keeps buckets in Redis so every gate instance shares one budget.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
	clock  clock.Clock
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(redisClient redis.UniversalClient, prefix string, config Config, clk clock.Clock) *RedisLimiter {
	if clk == nil {
		clk = clock.Real{}
	}
	if prefix == "" {
		prefix = "limiter"
	}
	return &RedisLimiter{
		redis:  redisClient,
		prefix: prefix,
		config: config,
		clock:  clk,
	}
}

func (l *RedisLimiter) key(k string) string {
	return l.prefix + ":" + k
}

// Consume implements Limiter. Any Redis failure is returned wrapped in
// ErrBackendUnavailable.
func (l *RedisLimiter) Consume(ctx context.Context, key string) (Decision, error) {
	now := l.clock.Now()

	res, err := consumeLua.Run(ctx, l.redis, []string{l.key(key)},
		now.UnixMilli(),
		l.config.Points,
		l.config.Duration.Milliseconds(),
		l.config.BlockDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("%w: unexpected script reply %v", ErrBackendUnavailable, res)
	}

	d := Decision{
		Allowed:    res[0] == 1,
		Limit:      l.config.Points,
		ResetAfter: time.Duration(res[2]) * time.Millisecond,
	}
	if d.Allowed {
		d.Remaining = l.config.Points - int(res[1])
	}
	return d, nil
}

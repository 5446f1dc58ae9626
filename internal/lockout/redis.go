package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
	"github.com/redis/go-redis/v9"
)

// lockoutScript reads and optionally advances the record at KEYS[1].
// ARGV: now (unix ms), op ("check" or "fail"), threshold, lock (ms), retention (ms).
// Returns {locked, failures, until_ms}.
const lockoutScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local op = ARGV[2]
local threshold = tonumber(ARGV[3])
local lock = tonumber(ARGV[4])
local retention = tonumber(ARGV[5])

local state = redis.call("HMGET", key, "failures", "until")
local failures = tonumber(state[1]) or 0
local until_ms = tonumber(state[2]) or 0

if until_ms > 0 and now >= until_ms then
  redis.call("DEL", key)
  failures = 0
  until_ms = 0
end

if op == "check" or until_ms > 0 then
  local locked = 0
  if until_ms > 0 then locked = 1 end
  return {locked, failures, until_ms}
end

if failures >= threshold then
  until_ms = now + lock
end
failures = failures + 1
redis.call("HSET", key, "failures", failures, "until", until_ms)

local ttl = retention
if until_ms > 0 and lock > ttl then
  ttl = lock
end
if ttl > 0 then
  redis.call("PEXPIRE", key, ttl)
end

local locked = 0
if until_ms > 0 then locked = 1 end
return {locked, failures, until_ms}
`

var lockoutLua = redis.NewScript(lockoutScript)

// RedisTracker shares lockout records across instances and survives
// restarts. The state machine runs inside one script so every decision for
// an account is atomic.
type RedisTracker struct {
	redis  redis.UniversalClient
	prefix string
	config Config
	clock  clock.Clock
}

// NewRedisTracker creates a tracker backed by the given Redis client.
func NewRedisTracker(redisClient redis.UniversalClient, prefix string, config Config, clk clock.Clock) *RedisTracker {
	if clk == nil {
		clk = clock.Real{}
	}
	if prefix == "" {
		prefix = "lockout"
	}
	return &RedisTracker{redis: redisClient, prefix: prefix, config: config, clock: clk}
}

func (t *RedisTracker) key(account string) string {
	return t.prefix + ":" + account
}

func (t *RedisTracker) run(ctx context.Context, op, account string) (State, error) {
	res, err := lockoutLua.Run(ctx, t.redis, []string{t.key(account)},
		t.clock.Now().UnixMilli(),
		op,
		t.config.FailureThreshold,
		t.config.LockDuration.Milliseconds(),
		t.config.Retention.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return State{}, fmt.Errorf("lockout %s: %w", op, err)
	}
	if len(res) != 3 {
		return State{}, fmt.Errorf("lockout %s: unexpected script reply %v", op, res)
	}

	st := State{Locked: res[0] == 1, Failures: int(res[1])}
	if st.Locked {
		st.Until = time.UnixMilli(res[2])
	}
	return st, nil
}

// CheckLock implements Tracker.
func (t *RedisTracker) CheckLock(ctx context.Context, account string) (State, error) {
	return t.run(ctx, "check", account)
}

// RecordFailure implements Tracker.
func (t *RedisTracker) RecordFailure(ctx context.Context, account string) (State, error) {
	return t.run(ctx, "fail", account)
}

// RecordSuccess implements Tracker.
func (t *RedisTracker) RecordSuccess(ctx context.Context, account string) error {
	if err := t.redis.Del(ctx, t.key(account)).Err(); err != nil {
		return fmt.Errorf("lockout clear: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each record as JSON under <prefix>:<id> with a rolling
// idle TTL, plus a set of session ids per user under <prefix>:user:<uid>.
// Every command touches a single key, so the store also runs on a cluster.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	idle   time.Duration
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(redisClient redis.UniversalClient, prefix string, idle time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisStore{redis: redisClient, prefix: prefix, idle: idle}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.redis.GetEx(ctx, s.key(id), s.idle).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// An unreadable record cannot be trusted; drop it and treat as absent.
		_ = s.redis.Del(ctx, s.key(id)).Err()
		return nil, ErrNotFound
	}

	// The index only speeds up ban sweeps; the ban list covers a lapsed one.
	_ = s.redis.Expire(ctx, s.userKey(rec.UserID), s.idle).Err()
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	userKey := s.userKey(rec.UserID)
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(rec.ID), raw, s.idle)
		pipe.SAdd(ctx, userKey, rec.ID)
		pipe.Expire(ctx, userKey, s.idle)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Replace(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	err = s.redis.SetArgs(ctx, s.key(rec.ID), raw, redis.SetArgs{Mode: "XX", TTL: s.idle}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	raw, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	var rec Record
	_ = json.Unmarshal(raw, &rec)

	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		if rec.UserID != "" {
			pipe.SRem(ctx, s.userKey(rec.UserID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// DestroyAllForUser deletes the sessions listed in the user's index. A
// session saved after the index is read survives the call; the ban list
// rejects it on its next touch-check.
func (s *RedisStore) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	dels := make([]*redis.IntCmd, 0, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			dels = append(dels, pipe.Del(ctx, s.key(id)))
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to destroy sessions: %w", err)
	}

	removed := 0
	for _, cmd := range dels {
		removed += int(cmd.Val())
	}
	return removed, nil
}

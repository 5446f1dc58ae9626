package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/redis/go-redis/v9"
)

// BanEntry is the ban list's view of one user. A lifted entry is kept so
// sessions opened before the ban stay dead after an unban.
type BanEntry struct {
	models.Ban
	Lifted bool `json:"lifted,omitempty"`
}

// Rejects reports whether a session of the entry's user is dead.
func (e *BanEntry) Rejects(rec *Record) bool {
	if e == nil {
		return false
	}
	return !e.Lifted || !rec.CreatedAt.After(e.At)
}

// BanList is the shared set of banned users consulted on every touch-check.
// It closes the gap between a ban and the sweep that removes the user's
// sessions.
type BanList interface {
	Add(ctx context.Context, userID string, ban models.Ban) error
	Lift(ctx context.Context, userID string) error
	// Lookup returns the entry for userID, or nil when the user was never banned.
	Lookup(ctx context.Context, userID string) (*BanEntry, error)
}

// RedisBanList stores entries in one hash keyed by user id.
type RedisBanList struct {
	redis redis.UniversalClient
	key   string
}

// NewRedisBanList creates a new RedisBanList
func NewRedisBanList(redisClient redis.UniversalClient, key string) *RedisBanList {
	if key == "" {
		key = "banned_users"
	}
	return &RedisBanList{redis: redisClient, key: key}
}

func (b *RedisBanList) put(ctx context.Context, userID string, e BanEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode ban: %w", err)
	}
	if err := b.redis.HSet(ctx, b.key, userID, raw).Err(); err != nil {
		return fmt.Errorf("failed to store ban: %w", err)
	}
	return nil
}

func (b *RedisBanList) Add(ctx context.Context, userID string, ban models.Ban) error {
	return b.put(ctx, userID, BanEntry{Ban: ban})
}

func (b *RedisBanList) Lift(ctx context.Context, userID string) error {
	e, err := b.Lookup(ctx, userID)
	if err != nil || e == nil {
		return err
	}
	e.Lifted = true
	return b.put(ctx, userID, *e)
}

func (b *RedisBanList) Lookup(ctx context.Context, userID string) (*BanEntry, error) {
	raw, err := b.redis.HGet(ctx, b.key, userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check ban: %w", err)
	}

	var e BanEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("failed to decode ban: %w", err)
	}
	return &e, nil
}

// MemoryBanList is a process-local BanList.
type MemoryBanList struct {
	mu      sync.RWMutex
	entries map[string]BanEntry
}

// NewMemoryBanList creates a new MemoryBanList
func NewMemoryBanList() *MemoryBanList {
	return &MemoryBanList{entries: make(map[string]BanEntry)}
}

func (b *MemoryBanList) Add(_ context.Context, userID string, ban models.Ban) error {
	b.mu.Lock()
	b.entries[userID] = BanEntry{Ban: ban}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBanList) Lift(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[userID]; ok {
		e.Lifted = true
		b.entries[userID] = e
	}
	return nil
}

func (b *MemoryBanList) Lookup(_ context.Context, userID string) (*BanEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[userID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

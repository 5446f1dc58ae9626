package session

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
)

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Records are copied in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	idle    time.Duration
	clock   clock.Clock
}

// NewMemoryStore creates a store whose records expire after idle without a Get.
func NewMemoryStore(idle time.Duration, clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		idle:    idle,
		clock:   clk,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !now.Before(e.expiresAt) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	e.expiresAt = now.Add(s.idle)

	rec := e.record
	return &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	now := s.clock.Now()

	s.mu.Lock()
	s.entries[rec.ID] = &memoryEntry{record: *rec, expiresAt: now.Add(s.idle)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, rec *Record) error {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[rec.ID]
	if !ok || !now.Before(e.expiresAt) {
		return ErrNotFound
	}
	s.entries[rec.ID] = &memoryEntry{record: *rec, expiresAt: now.Add(s.idle)}
	return nil
}

func (s *MemoryStore) DestroyAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.record.UserID == userID {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Sweep drops records whose idle expiry has passed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Name identifies the store in cleanup logs.
func (s *MemoryStore) Name() string { return "sessions" }

// Len returns the number of stored records, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

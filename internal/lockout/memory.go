package lockout

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/clock"
)

const stripeCount = 64

type stripe struct {
	mu      sync.Mutex
	records map[string]*record
}

// MemoryTracker keeps lockout records in process memory. Accounts hash onto
// a fixed set of stripes; each stripe's mutex serializes the accounts on it.
type MemoryTracker struct {
	stripes [stripeCount]stripe
	config  Config
	clock   clock.Clock
}

// NewMemoryTracker creates a new MemoryTracker
func NewMemoryTracker(config Config, clk clock.Clock) *MemoryTracker {
	if clk == nil {
		clk = clock.Real{}
	}
	t := &MemoryTracker{config: config, clock: clk}
	for i := range t.stripes {
		t.stripes[i].records = make(map[string]*record)
	}
	return t
}

func (t *MemoryTracker) stripeFor(account string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(account))
	return &t.stripes[h.Sum32()%stripeCount]
}

// CheckLock reports the account's lock state, clearing an expired lock.
func (t *MemoryTracker) CheckLock(_ context.Context, account string) (State, error) {
	now := t.clock.Now()
	s := t.stripeFor(account)

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[account]
	if !ok {
		return State{}, nil
	}
	if r.lockExpired(now) {
		delete(s.records, account)
		return State{}, nil
	}
	return r.state(), nil
}

// RecordFailure counts one failed credential check. A locked account is
// left untouched.
func (t *MemoryTracker) RecordFailure(_ context.Context, account string) (State, error) {
	now := t.clock.Now()
	s := t.stripeFor(account)

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[account]
	if ok && r.lockExpired(now) {
		ok = false
	}
	if !ok {
		r = &record{}
		s.records[account] = r
	}
	if r.lockedUntil.IsZero() {
		r.fail(t.config, now)
	}
	return r.state(), nil
}

// RecordSuccess clears the account's record.
func (t *MemoryTracker) RecordSuccess(_ context.Context, account string) error {
	s := t.stripeFor(account)

	s.mu.Lock()
	delete(s.records, account)
	s.mu.Unlock()
	return nil
}

// Sweep evicts expired locks and idle failure counts.
func (t *MemoryTracker) Sweep(now time.Time) int {
	removed := 0
	for i := range t.stripes {
		s := &t.stripes[i]
		s.mu.Lock()
		for account, r := range s.records {
			if r.stale(t.config, now) {
				delete(s.records, account)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Name identifies the tracker in cleanup logs.
func (t *MemoryTracker) Name() string { return "lockout_records" }

// Len returns the number of tracked accounts.
func (t *MemoryTracker) Len() int {
	n := 0
	for i := range t.stripes {
		s := &t.stripes[i]
		s.mu.Lock()
		n += len(s.records)
		s.mu.Unlock()
	}
	return n
}

package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// UserBanned asks the sweeper to destroy every session of UserID.
type UserBanned struct {
	UserID string
}

// Sweeper destroys the sessions of banned users on a background goroutine.
// Events that do not fit the buffer are dropped; the ban list still rejects
// those sessions on their next touch-check.
type Sweeper struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration

	ch        chan UserBanned
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSweeper starts a sweeper with the given buffer size. timeout bounds
// each DestroyAllForUser pass.
func NewSweeper(store Store, bufferSize int, timeout time.Duration, logger *slog.Logger) *Sweeper {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	s := &Sweeper{
		store:   store,
		logger:  logger,
		timeout: timeout,
		ch:      make(chan UserBanned, bufferSize),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	for {
		select {
		case ev := <-s.ch:
			s.sweep(ev)
		case <-s.done:
			for {
				select {
				case ev := <-s.ch:
					s.sweep(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *Sweeper) sweep(ev UserBanned) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.store.DestroyAllForUser(ctx, ev.UserID)
	if err != nil {
		s.logger.Error("session sweep failed",
			slog.String("user_id", ev.UserID),
			slog.Int("destroyed", n),
			slog.Any("error", err))
		return
	}
	s.logger.Info("banned user sessions destroyed",
		slog.String("user_id", ev.UserID),
		slog.Int("destroyed", n))
}

// Enqueue hands ev to the worker without blocking. It reports false when
// the event was dropped.
func (s *Sweeper) Enqueue(ev UserBanned) bool {
	if s == nil || s.closed.Load() {
		return false
	}

	select {
	case s.ch <- ev:
		return true
	case <-s.done:
		return false
	default:
		s.dropped.Add(1)
		s.logger.Warn("session sweep queue full, relying on ban check",
			slog.String("user_id", ev.UserID))
		return false
	}
}

// Close stops accepting events and waits for queued sweeps to finish.
func (s *Sweeper) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
	})
}

// Dropped returns how many events were discarded because the queue was full.
func (s *Sweeper) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

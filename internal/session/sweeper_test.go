package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_DestroysBannedUserSessions(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	clk := newFakeClock()
	store := NewRedisStore(rdb, "sess", time.Hour)
	sweeper := NewSweeper(store, 8, time.Second, discardLogger())
	t.Cleanup(sweeper.Close)

	m := NewManager(store, NewRedisBanList(rdb, "banned_users"), sweeper,
		Config{AbsoluteTimeout: time.Hour}, clk, discardLogger())

	var ids []string
	for i := 0; i < 5; i++ {
		rec, err := m.Create(ctx, "u1", Attributes{})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	keep, err := m.Create(ctx, "u2", Attributes{})
	require.NoError(t, err)

	require.NoError(t, m.InvalidateAllForUser(ctx, "u1", models.Ban{By: "admin", Reason: "spam"}))

	assert.Eventually(t, func() bool {
		for _, id := range ids {
			if _, err := store.Get(ctx, id); err == nil {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	_, err = store.Get(ctx, keep.ID)
	assert.NoError(t, err)
}

func TestSweeper_CloseDrainsQueue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, newFakeClock())
	sweeper := NewSweeper(store, 16, time.Second, discardLogger())

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Save(ctx, testRecord(fmt.Sprintf("s%d", i), fmt.Sprintf("u%d", i))))
		sweeper.Enqueue(UserBanned{UserID: fmt.Sprintf("u%d", i)})
	}
	sweeper.Close()

	assert.Equal(t, 0, store.Len())
	assert.False(t, sweeper.Enqueue(UserBanned{UserID: "late"}))
}

type blockingStore struct {
	Store
	release chan struct{}
}

func (b *blockingStore) DestroyAllForUser(ctx context.Context, userID string) (int, error) {
	<-b.release
	return 0, nil
}

func TestSweeper_EnqueueNeverBlocks(t *testing.T) {
	store := &blockingStore{Store: NewMemoryStore(time.Hour, newFakeClock()), release: make(chan struct{})}
	sweeper := NewSweeper(store, 1, time.Second, discardLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			sweeper.Enqueue(UserBanned{UserID: "u1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a busy sweeper")
	}
	assert.Positive(t, sweeper.Dropped())

	close(store.release)
	sweeper.Close()
}

func TestSweeper_NilIsSafe(t *testing.T) {
	var s *Sweeper
	assert.False(t, s.Enqueue(UserBanned{UserID: "u1"}))
	assert.Zero(t, s.Dropped())
	s.Close()
}

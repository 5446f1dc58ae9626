package session

import "context"

// Store maps session ids to records. Implementations apply their own idle
// expiry, refreshed on every Get.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	// Replace overwrites an existing record and returns ErrNotFound when the
	// session is gone, so a destroyed session is never written back.
	Replace(ctx context.Context, rec *Record) error
	// Destroy removes id. Destroying an absent session is not an error.
	Destroy(ctx context.Context, id string) error
	// DestroyAllForUser removes every live record of userID and reports how
	// many were removed.
	DestroyAllForUser(ctx context.Context, userID string) (int, error)
}

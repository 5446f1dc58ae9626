package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/models"
)

// ErrNotFound is returned by a Store when no live record exists for an id.
var ErrNotFound = errors.New("session not found")

// Record is the server-side state of one login. CreatedAt is the login
// instant and is never rewritten by a refresh.
type Record struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Username    string       `json:"username"`
	DisplayName string       `json:"display_name"`
	CreatedAt   time.Time    `json:"created_at"`
	Roles       models.Roles `json:"roles"`
	VerifiedAt  *time.Time   `json:"verified_at,omitempty"`
	Banned      *models.Ban  `json:"banned,omitempty"`
	XP          int          `json:"xp"`
	HasAvatar   bool         `json:"has_avatar"`
}

// Attributes are the denormalized user fields cached on a session.
type Attributes struct {
	Username    string
	DisplayName string
	Roles       models.Roles
	VerifiedAt  *time.Time
	Banned      *models.Ban
	XP          int
	HasAvatar   bool
}

// AttributesFromUser copies the cached fields off a user.
func AttributesFromUser(u *models.User) Attributes {
	return Attributes{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Roles:       u.Roles,
		VerifiedAt:  u.VerifiedAt,
		Banned:      u.Ban,
		XP:          u.XP,
		HasAvatar:   u.HasAvatar,
	}
}

func (r *Record) apply(a Attributes) {
	r.Username = a.Username
	r.DisplayName = a.DisplayName
	r.Roles = a.Roles
	r.VerifiedAt = a.VerifiedAt
	r.Banned = a.Banned
	r.XP = a.XP
	r.HasAvatar = a.HasAvatar
}

// newID returns 32 random bytes encoded as unpadded base64url.
func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

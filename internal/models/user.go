package models

import (
	"time"
)

// User is the persisted account. Only the fields needed to authenticate,
// decide bans and render the cached session view are kept here.
type User struct {
	ID           string
	Email        string
	Username     string
	DisplayName  string
	PasswordHash string
	Roles        Roles
	XP           int
	HasAvatar    bool
	VerifiedAt   *time.Time
	Ban          *Ban // nil unless banned
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ban records who banned a user, why and when.
type Ban struct {
	By     string    `json:"by"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// IsBanned reports whether the user currently carries a ban.
func (u *User) IsBanned() bool {
	return u.Ban != nil
}

// IsVerified reports whether the user has confirmed their email address.
func (u *User) IsVerified() bool {
	return u.VerifiedAt != nil
}

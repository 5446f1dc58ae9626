package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login errors
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrLoginLocked        = errors.New("login temporarily locked")
	ErrUserBanned         = errors.New("user is banned")

	// Ban administration errors
	ErrCannotBanAdmin = errors.New("administrators cannot be banned")
	ErrAlreadyBanned  = errors.New("user is already banned")
	ErrNotBanned      = errors.New("user is not banned")
)

// LockedError reports a locked account together with the lock expiry.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrLoginLocked, e.Until.UTC().Format(time.RFC3339))
}

// Is lets errors.Is match LockedError against ErrLoginLocked.
func (e *LockedError) Is(target error) bool {
	return target == ErrLoginLocked
}

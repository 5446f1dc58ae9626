package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the signed session cookie. The JWT id is
// the server-side session id; nothing else in the cookie is trusted.
type SessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// BanRequest is the body of PATCH /admin/users/{id}/ban.
type BanRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

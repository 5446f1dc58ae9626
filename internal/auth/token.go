package auth

import (
	"errors"
	"fmt"

	"github.com/BradenHooton/warden/internal/clock"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any cookie value that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

const tokenIssuer = "warden"

// TokenManager signs and verifies session cookie values.
type TokenManager struct {
	secret []byte
	clock  clock.Clock
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, clk clock.Clock) *TokenManager {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TokenManager{secret: []byte(secret), clock: clk}
}

// Generate signs a token naming session sid of userID. The token carries no
// expiry; session lifetime is enforced server-side.
func (tm *TokenManager) Generate(sid, userID string) (string, error) {
	claims := &models.SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       sid,
			Issuer:   tokenIssuer,
			IssuedAt: jwt.NewNumericDate(tm.clock.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenString and returns its claims.
func (tm *TokenManager) Validate(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return tm.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(tm.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims, nil
}

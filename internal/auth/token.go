// Package auth implements the daemon's authentication layer: bearer-token
// issuance and verification, the process-wide signing secret, and the
// optional TOTP second factor.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	// DefaultTokenTTL is how long a bearer token stays valid.
	DefaultTokenTTL = 30 * 24 * time.Hour

	// RefreshWindow is the remaining validity under which a client should
	// proactively renew. Advisory only; verification does not enforce it.
	RefreshWindow = 7 * 24 * time.Hour
)

// Claims are the application claims embedded in a bearer token.
type Claims struct {
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig carries the signing secret and token lifetime. The secret is
// read-mostly process state, initialized once at startup and never mutated.
type JWTConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

func (c JWTConfig) ttl() time.Duration {
	if c.TokenTTL > 0 {
		return c.TokenTTL
	}
	return DefaultTokenTTL
}

// GenerateToken issues a signed bearer token for a paired client.
func GenerateToken(config JWTConfig, clientID, clientName string) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID:   clientID,
		ClientName: clientName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.ttl())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies a bearer token's signature and expiry and returns
// its claims.
func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ShouldRefreshToken reports whether the token's remaining validity has
// fallen under the refresh window, so a client can renew before hard expiry.
func ShouldRefreshToken(claims *Claims, now time.Time) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(now) <= RefreshWindow
}

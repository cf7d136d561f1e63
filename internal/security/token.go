package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the JWT payload carried by the session cookie.
type SessionClaims struct {
	UserID uint64 `json:"uid"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs a session token for the given user.
func IssueSessionToken(secret string, expiry time.Duration, userID uint64) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("security: empty session secret")
	}
	if userID == 0 {
		return "", errors.New("security: zero user id")
	}
	now := time.Now().UTC()
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("security: sign session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates a session token and returns its claims.
func ParseSessionToken(secret, raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("security: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("security: parse session token: %w", err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("security: invalid session token")
	}
	return claims, nil
}

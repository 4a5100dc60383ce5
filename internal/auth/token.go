// Package auth issues and parses the bearer tokens that guard the API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
)

// TokenType is the token_type returned with every access token.
const TokenType = "Bearer"

// Claims are the registered claims carried by an access token. Subject is the user id.
type Claims = jwt.RegisteredClaims

// GenerateToken signs an HS256 token for userID that expires after ttl.
func GenerateToken(userID, secret string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, errors.New("jwt secret not configured")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token ttl must be positive")
	}
	expiresAt := now.Add(ttl).UTC()
	claims := Claims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// UserIDFromToken extracts the subject of a parsed token.
func UserIDFromToken(token *jwt.Token) (string, error) {
	if token == nil || !token.Valid {
		return "", apperrors.ErrUnauthorized
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: token has no subject", apperrors.ErrUnauthorized)
	}
	return subject, nil
}

// ParseToken validates a raw token string and returns its subject.
func ParseToken(raw, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	return UserIDFromToken(token)
}

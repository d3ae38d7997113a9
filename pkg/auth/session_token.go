// Package auth issues and verifies the signed session tokens that bind a
// widget connection to its session and tenant.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenType = "session"

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrWrongType    = errors.New("token is not a session token")
)

// SessionClaims are the JWT claims embedded in a session token.
type SessionClaims struct {
	SessionID string `json:"sessionId"`
	SiteKey   string `json:"siteKey"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens.
type TokenService struct {
	secretKey []byte
	validity  time.Duration
}

// NewTokenService creates a token service. The secret must be non-empty.
func NewTokenService(secretKey string, validity time.Duration) (*TokenService, error) {
	if secretKey == "" {
		return nil, errors.New("JWT secret key cannot be empty")
	}
	if validity == 0 {
		validity = 24 * time.Hour
	}
	return &TokenService{
		secretKey: []byte(secretKey),
		validity:  validity,
	}, nil
}

// Generate creates a signed session token binding sessionID to siteKey.
func (s *TokenService) Generate(sessionID, siteKey string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		SiteKey:   siteKey,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry, ensures the token is a session
// token, and returns the embedded claims.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongType
	}
	return claims, nil
}

package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// SessionClaims represents the claims carried by a signed session token.
// The session ID travels in the registered Subject claim; the token holds
// nothing else so it stays an opaque credential.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// Service signs and verifies session tokens
type Service struct {
	secretKey string
	expiry    time.Duration
}

// NewService creates a new token service. A zero expiry produces tokens
// that never expire; rotation is then purely a store retention concern.
func NewService(secretKey string, expiry time.Duration) *Service {
	return &Service{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// Generate signs a token for a session ID
func (s *Service) Generate(sessionID string) (string, error) {
	now := time.Now()

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if s.expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.secretKey))
}

// Validate verifies a token's signature and returns the session ID it carries
func (s *Service) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(s.secretKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	signed, err := svc.Generate("session-123")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	sessionID, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "session-123", sessionID)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	signed, err := svc.Generate("session-123")
	require.NoError(t, err)

	_, err = svc.Validate(signed + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	signed, err := NewService("secret-a", time.Hour).Generate("session-123")
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	_, err := svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)

	signed, err := svc.Generate("session-123")
	require.NoError(t, err)

	_, err = svc.Validate(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestZeroExpiryNeverExpires(t *testing.T) {
	svc := NewService("test-secret", 0)

	signed, err := svc.Generate("session-123")
	require.NoError(t, err)

	sessionID, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "session-123", sessionID)
}

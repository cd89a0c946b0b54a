package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	mgr := NewJWTManager("test-secret", "bookagent", time.Hour)

	token, err := mgr.GenerateToken("user-123", "alice", true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := mgr.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.Admin)
	assert.Equal(t, "bookagent", claims.Issuer)
}

func TestJWTExpired(t *testing.T) {
	mgr := NewJWTManager("test-secret", "bookagent", -time.Minute)

	token, err := mgr.GenerateToken("user-123", "alice", false)
	require.NoError(t, err)

	_, err = mgr.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTWrongSecret(t *testing.T) {
	mgr := NewJWTManager("right-secret", "bookagent", time.Hour)
	token, err := mgr.GenerateToken("user-123", "alice", false)
	require.NoError(t, err)

	other := NewJWTManager("wrong-secret", "bookagent", time.Hour)
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTMalformed(t *testing.T) {
	mgr := NewJWTManager("test-secret", "bookagent", time.Hour)

	_, err := mgr.ParseToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

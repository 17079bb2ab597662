package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	s := NewJWTService("secret")
	token, err := s.GenerateToken(7, "admin", "admin")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewJWTService("one").GenerateToken(1, "u", "viewer")
	require.NoError(t, err)

	_, err = NewJWTService("two").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	s := NewJWTService("secret")
	s.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := s.GenerateToken(1, "u", "viewer")
	require.NoError(t, err)

	_, err = NewJWTService("secret").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, CheckPassword("hunter2", hash))
	assert.False(t, CheckPassword("hunter3", hash))
}

package auth_test

import (
	"testing"

	"github.com/parla-app/parla/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	svc := auth.NewJWTService("secret")

	token, err := svc.GenerateToken(7, "ana", "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	t.Parallel()
	token, err := auth.NewJWTService("one").GenerateToken(1, "ana", "user")
	require.NoError(t, err)

	_, err = auth.NewJWTService("two").ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = auth.NewJWTService("one").ValidateToken("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	t.Parallel()
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, auth.CheckPassword("hunter2", hash))
	assert.False(t, auth.CheckPassword("hunter3", hash))
}

package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	authuc "example.com/mechstore/app/internal/usecase/auth"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, err := svc.GenerateToken(authuc.Claims{UserID: "42", Email: "a@b.c", Name: "A"})
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "42", claims.UserID)
	require.Equal(t, "a@b.c", claims.Email)
}

func TestJWT_RejectsForeignSecretAndExpired(t *testing.T) {
	other := NewJWTService("other", time.Hour)
	token, err := other.GenerateToken(authuc.Claims{UserID: "42"})
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour).ParseToken(token)
	require.Error(t, err)

	expired := NewJWTService("secret", -time.Minute)
	token, err = expired.GenerateToken(authuc.Claims{UserID: "42"})
	require.NoError(t, err)

	_, err = expired.ParseToken(token)
	require.Error(t, err)
}

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockTokenService struct {
	claims   map[string]*Claims
	parseErr error
}

func (m *mockTokenService) GenerateToken(c Claims) (string, error) {
	return "token-" + c.UserID, nil
}

func (m *mockTokenService) ParseToken(token string) (*Claims, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	c, ok := m.claims[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return c, nil
}

func TestAuthenticate_ValidBearer(t *testing.T) {
	tokens := &mockTokenService{claims: map[string]*Claims{
		"abc": {UserID: "u-1", Email: "buyer@example.com", Name: "Buyer"},
	}}
	svc := NewService(tokens)

	id, err := svc.Authenticate(context.Background(), "Bearer abc")

	require.NoError(t, err)
	require.Equal(t, "u-1", id.UserID)
	require.Equal(t, "abc", id.Token)
	require.Equal(t, "buyer@example.com", id.Email)
}

func TestAuthenticate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "Empty header", header: ""},
		{name: "Wrong scheme", header: "Basic abc"},
		{name: "Blank token", header: "Bearer   "},
		{name: "Unknown token", header: "Bearer nope"},
		{name: "Missing subject", header: "Bearer anon"},
	}

	tokens := &mockTokenService{claims: map[string]*Claims{
		"anon": {UserID: ""},
	}}
	svc := NewService(tokens)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := svc.Authenticate(context.Background(), tt.header)
			require.ErrorIs(t, err, ErrUnauthorized)
			require.Nil(t, id)
		})
	}
}

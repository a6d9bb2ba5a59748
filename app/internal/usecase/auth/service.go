package auth

import (
	"context"
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

type Claims struct {
	UserID string
	Email  string
	Name   string
}

type TokenService interface {
	GenerateToken(c Claims) (string, error)
	ParseToken(token string) (*Claims, error)
}

// Identity is an authenticated caller together with the raw bearer token
// forwarded to the upstream commerce API.
type Identity struct {
	Claims
	Token string
}

type Service struct {
	tokens TokenService
}

func NewService(tokens TokenService) *Service {
	return &Service{tokens: tokens}
}

// Authenticate resolves an Authorization header value ("Bearer <token>").
func (s *Service) Authenticate(ctx context.Context, header string) (*Identity, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrUnauthorized
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.ParseToken(token)
	if err != nil || claims == nil || claims.UserID == "" {
		return nil, ErrUnauthorized
	}

	return &Identity{Claims: *claims, Token: token}, nil
}

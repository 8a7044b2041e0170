// Package identity resolves bearer tokens to users and forwards credential
// flows to an external identity provider. Passwords never touch local storage.
package identity

import (
	"context"
	"errors"
	"strings"

	"bradboard/internal/domain"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrNotConfigured      = errors.New("identity provider not configured")
)

// Authenticator resolves an access token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// Session is the token pair returned by sign-up, sign-in and refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Provider runs credential flows against the external identity service.
type Provider interface {
	SignUp(ctx context.Context, email, password, name string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Chain tries each authenticator in order and returns the first success.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, token string) (domain.User, error) {
	err := ErrInvalidToken
	for _, a := range c {
		if a == nil {
			continue
		}
		u, aerr := a.Authenticate(ctx, token)
		if aerr == nil {
			return u, nil
		}
		err = aerr
	}
	return domain.User{}, err
}

// displayName prefers metadata name, then email.
func displayName(metadata map[string]any, email string) string {
	if n, ok := metadata["name"].(string); ok && strings.TrimSpace(n) != "" {
		return strings.TrimSpace(n)
	}
	return email
}

// defaultName is the local part of an email address.
func defaultName(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

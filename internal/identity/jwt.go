package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bradboard/internal/domain"
)

type tokenClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// JWTVerifier validates HS256 access tokens signed with the provider's
// shared secret, the same tokens a GoTrue server issues.
type JWTVerifier struct {
	Secret string
}

func (v JWTVerifier) Authenticate(_ context.Context, token string) (domain.User, error) {
	if strings.TrimSpace(v.Secret) == "" {
		return domain.User{}, fmt.Errorf("%w: jwt secret", ErrNotConfigured)
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(v.Secret), nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return domain.User{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return domain.User{}, fmt.Errorf("%w: subject claim required", ErrInvalidToken)
	}
	return domain.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  displayName(claims.UserMetadata, claims.Email),
	}, nil
}

// SignDevToken mints a short-lived token for local development in the same
// shape the verifier accepts.
func SignDevToken(secret string, u domain.User, now time.Time, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	if u.ID == "" {
		return "", errors.New("user id is required")
	}
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  jwt.ClaimStrings{"authenticated"},
		},
		Email: u.Email,
		Role:  "authenticated",
	}
	if u.Name != "" {
		claims.UserMetadata = map[string]any{"name": u.Name}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"bradboard/internal/domain"
	"bradboard/internal/engine"
	"bradboard/internal/identity"
)

type AuthConfig struct {
	Authenticator identity.Authenticator
	Provider      identity.Provider
	JWTSecret     string
	DevLogin      bool
	DevTokenTTL   time.Duration
}

// Principal is the authenticated caller plus the token it presented.
type Principal struct {
	User  domain.User
	Token string
}

func (p Principal) Actor() domain.Actor {
	return domain.Actor{ID: p.User.ID, Name: p.User.Name}
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func principalFromRequest(ctx context.Context) (Principal, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.User.ID != "" {
		return p, nil
	}
	return Principal{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func actorFromContext(ctx context.Context) (domain.Actor, huma.StatusError) {
	p, err := principalFromRequest(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	return p.Actor(), nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// publicPaths are the routes under basePath reachable without a token.
func publicPaths(basePath string) map[string]bool {
	out := map[string]bool{}
	for _, p := range []string{"auth/register", "auth/login", "auth/refresh", "auth/dev/login", "openapi.json"} {
		out[path.Join(basePath, p)] = true
	}
	return out
}

func newAuthMiddleware(basePath string, cfg AuthConfig, e engine.Engine) func(http.Handler) http.Handler {
	public := publicPaths(basePath)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			route := req.URL.Path
			if len(route) > 1 {
				route = strings.TrimSuffix(route, "/")
			}
			if !strings.HasPrefix(route, basePath) || public[route] || req.Method == http.MethodOptions {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := bearerToken(strings.TrimSpace(req.Header.Get("Authorization")))
			if !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}
			if cfg.Authenticator == nil {
				respondStatusError(w, newAPIError(http.StatusServiceUnavailable, "identity_unavailable", identity.ErrNotConfigured.Error(), nil))
				return
			}
			user, err := cfg.Authenticator.Authenticate(req.Context(), token)
			if err != nil {
				if errors.Is(err, identity.ErrNotConfigured) {
					respondStatusError(w, newAPIError(http.StatusServiceUnavailable, "identity_unavailable", err.Error(), nil))
					return
				}
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "Invalid authentication credentials", nil))
				return
			}
			if err := e.EnsureUser(req.Context(), user); err != nil {
				respondStatusError(w, handleError(err))
				return
			}
			ctx := withPrincipal(req.Context(), Principal{User: user, Token: token})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

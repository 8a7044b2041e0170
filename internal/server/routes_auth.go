package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"bradboard/internal/config"
	"bradboard/internal/domain"
	"bradboard/internal/engine"
	"bradboard/internal/identity"
)

func registerRoot(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "root",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Service banner",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body RootResponse `json:"body"`
	}, error) {
		return &struct {
			Body RootResponse `json:"body"`
		}{Body: RootResponse{Message: config.ProjectName, Version: config.Version}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body HealthResponse `json:"body"`
	}, error) {
		return &struct {
			Body HealthResponse `json:"body"`
		}{Body: HealthResponse{Status: "healthy", Service: config.ServiceName}}, nil
	})
}

func registerAuth(api huma.API, e engine.Engine, authCfg AuthConfig) {
	provider := func() (identity.Provider, huma.StatusError) {
		if authCfg.Provider == nil {
			return nil, newAPIError(http.StatusServiceUnavailable, "identity_unavailable", identity.ErrNotConfigured.Error(), nil)
		}
		return authCfg.Provider, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/auth/register",
		Summary:     "Register a new user with the identity provider",
		Errors:      []int{http.StatusBadRequest, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body AuthResponse `json:"body"`
	}, error) {
		p, perr := provider()
		if perr != nil {
			return nil, perr
		}
		s, err := p.SignUp(ctx, input.Body.Email, input.Body.Password, strings.TrimSpace(input.Body.Name))
		switch {
		case errors.Is(err, identity.ErrUserExists):
			return nil, newAPIError(http.StatusBadRequest, "user_exists", "User already exists", nil)
		case errors.Is(err, identity.ErrNotConfigured):
			return nil, handleError(err)
		case err != nil:
			return nil, newAPIError(http.StatusBadRequest, "registration_failed", "Registration failed", map[string]any{"error": err.Error()})
		}
		return &struct {
			Body AuthResponse `json:"body"`
		}{Body: authResponse(s, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange email and password for tokens",
		Errors:      []int{http.StatusUnauthorized, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body AuthResponse `json:"body"`
	}, error) {
		p, perr := provider()
		if perr != nil {
			return nil, perr
		}
		s, err := p.SignIn(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, identity.ErrNotConfigured) {
				return nil, handleError(err)
			}
			return nil, newAPIError(http.StatusUnauthorized, "invalid_credentials", "Invalid credentials", nil)
		}
		return &struct {
			Body AuthResponse `json:"body"`
		}{Body: authResponse(s, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh an access token",
		Errors:      []int{http.StatusUnauthorized, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body RefreshRequest `json:"body"`
	}) (*struct {
		Body AuthResponse `json:"body"`
	}, error) {
		p, perr := provider()
		if perr != nil {
			return nil, perr
		}
		s, err := p.Refresh(ctx, input.Body.RefreshToken)
		if err != nil {
			if errors.Is(err, identity.ErrNotConfigured) {
				return nil, handleError(err)
			}
			return nil, newAPIError(http.StatusUnauthorized, "refresh_failed", "Token refresh failed", nil)
		}
		return &struct {
			Body AuthResponse `json:"body"`
		}{Body: authResponse(s, nil)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		Summary:     "Revoke the current session",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		// Locally minted tokens are stateless; there is nothing to revoke.
		if authCfg.Provider != nil {
			if err := authCfg.Provider.SignOut(ctx, principal.Token); err != nil && !errors.Is(err, identity.ErrNotConfigured) {
				return nil, newAPIError(http.StatusBadRequest, "logout_failed", "Logout failed", map[string]any{"error": err.Error()})
			}
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Successfully logged out"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.GetUser(ctx, principal.User.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	if !authCfg.DevLogin {
		return
	}
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body AuthResponse `json:"body"`
	}, error) {
		email := strings.TrimSpace(input.Body.Email)
		u := domain.User{ID: strings.TrimSpace(input.Body.ID), Email: email, Name: strings.TrimSpace(input.Body.Name)}
		if u.ID == "" {
			u.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String()
		}
		if u.Name == "" {
			u.Name = email
		}
		ttl := authCfg.DevTokenTTL
		if ttl <= 0 {
			ttl = 12 * time.Hour
		}
		token, err := identity.SignDevToken(authCfg.JWTSecret, u, time.Now(), ttl)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		if err := e.EnsureUser(ctx, u); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AuthResponse `json:"body"`
		}{Body: authResponse(identity.Session{AccessToken: token}, &u)}, nil
	})
}

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"bradboard/internal/domain"
)

// GoTrue runs credential flows against a GoTrue-compatible auth server
// (Supabase Auth) at BaseURL.
type GoTrue struct {
	BaseURL    string
	AnonKey    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

var (
	_ Provider      = (*GoTrue)(nil)
	_ Authenticator = (*GoTrue)(nil)
)

// NewGoTrue creates a client with sane defaults.
func NewGoTrue(baseURL, anonKey string) *GoTrue {
	return &GoTrue{BaseURL: baseURL, AnonKey: anonKey, Timeout: 10 * time.Second}
}

// ProviderError wraps non-2xx responses.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider: status=%d %s", e.StatusCode, e.Message)
}

// client builds a gotrue client bound to ctx's deadline, since the library
// calls take no context.
func (g *GoTrue) client(ctx context.Context, bearer string) (gotrue.Client, error) {
	if strings.TrimSpace(g.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hc := http.Client{Timeout: g.Timeout}
	if g.HTTPClient != nil {
		hc = *g.HTTPClient
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); hc.Timeout == 0 || left < hc.Timeout {
			hc.Timeout = left
		}
	}
	c := gotrue.New("", g.AnonKey).
		WithCustomGoTrueURL(strings.TrimRight(g.BaseURL, "/") + "/auth/v1").
		WithClient(hc)
	if bearer != "" {
		c = c.WithToken(bearer)
	}
	return c, nil
}

func session(s types.Session) Session {
	tt := s.TokenType
	if tt == "" {
		tt = "bearer"
	}
	return Session{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, TokenType: tt}
}

func (g *GoTrue) SignUp(ctx context.Context, email, password, name string) (Session, error) {
	c, err := g.client(ctx, "")
	if err != nil {
		return Session{}, err
	}
	if name == "" {
		name = defaultName(email)
	}
	resp, err := c.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     map[string]interface{}{"name": name},
	})
	if err != nil {
		err = providerError(err)
		if pe, ok := err.(*ProviderError); ok && strings.Contains(strings.ToLower(pe.Message), "already registered") {
			return Session{}, ErrUserExists
		}
		return Session{}, err
	}
	if resp.AccessToken == "" {
		// email confirmation pending: the provider created the user but issued no session
		return Session{}, &ProviderError{StatusCode: http.StatusAccepted, Message: "registration pending confirmation"}
	}
	return session(resp.Session), nil
}

func (g *GoTrue) SignIn(ctx context.Context, email, password string) (Session, error) {
	c, err := g.client(ctx, "")
	if err != nil {
		return Session{}, err
	}
	resp, err := c.SignInWithEmailPassword(email, password)
	if err != nil {
		return Session{}, credentialsError(err)
	}
	return session(resp.Session), nil
}

func (g *GoTrue) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	c, err := g.client(ctx, "")
	if err != nil {
		return Session{}, err
	}
	resp, err := c.RefreshToken(refreshToken)
	if err != nil {
		return Session{}, credentialsError(err)
	}
	return session(resp.Session), nil
}

func (g *GoTrue) SignOut(ctx context.Context, accessToken string) error {
	c, err := g.client(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := c.Logout(); err != nil {
		return providerError(err)
	}
	return nil
}

// Authenticate asks the provider who owns the token.
func (g *GoTrue) Authenticate(ctx context.Context, token string) (domain.User, error) {
	c, err := g.client(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	resp, err := c.GetUser()
	if err != nil {
		err = providerError(err)
		if pe, ok := err.(*ProviderError); ok && (pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden) {
			return domain.User{}, ErrInvalidToken
		}
		return domain.User{}, err
	}
	if resp.ID == uuid.Nil {
		return domain.User{}, ErrInvalidToken
	}
	return domain.User{
		ID:    resp.ID.String(),
		Email: resp.Email,
		Name:  displayName(resp.UserMetadata, resp.Email),
	}, nil
}

func credentialsError(err error) error {
	err = providerError(err)
	if pe, ok := err.(*ProviderError); ok && pe.StatusCode >= 400 && pe.StatusCode < 500 {
		return ErrInvalidCredentials
	}
	return err
}

// The library reports non-2xx answers as "response status code N: <body>".
var statusPattern = regexp.MustCompile(`(?s)^response status code (\d{3})(?::\s*(.*))?$`)

// providerError turns a library error into a ProviderError when it carries
// an HTTP status.
func providerError(err error) error {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return fmt.Errorf("identity provider: %w", err)
	}
	code, _ := strconv.Atoi(m[1])
	return &ProviderError{StatusCode: code, Message: providerMessage(m[2])}
}

// providerMessage extracts the human-readable field GoTrue puts in error bodies.
func providerMessage(body string) string {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal([]byte(body), &payload) == nil {
		for _, m := range []string{payload.Msg, payload.Message, payload.ErrorDescription} {
			if m != "" {
				return m
			}
		}
	}
	return strings.TrimSpace(body)
}

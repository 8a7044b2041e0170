package bradboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal BradBoard HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. baseURL includes the API base
// path, e.g. http://localhost:8000/api/v1.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

type Project struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CreatedByID   string `json:"created_by_id"`
	CreatedByName string `json:"created_by_name"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type Ticket struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	ProjectID      string  `json:"project_id"`
	ProjectTitle   string  `json:"project_title,omitempty"`
	Status         string  `json:"status"`
	Priority       int     `json:"priority"`
	AssignedToID   *string `json:"assigned_to_id,omitempty"`
	AssignedToName *string `json:"assigned_to_name,omitempty"`
	CreatedByID    string  `json:"created_by_id"`
	CreatedByName  string  `json:"created_by_name"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type TicketInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ProjectID   string `json:"project_id"`
	Status      string `json:"status,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

// TicketFilter mirrors the list and export query parameters.
type TicketFilter struct {
	ProjectIDs    []string
	Statuses      []string
	Priorities    []int
	AssignedToIDs []string
	CreatedByIDs  []string
	Search        string
	Page          int
	Size          int
}

type CreationResult struct {
	CreatedProjects []Project `json:"created_projects"`
	CreatedTickets  []Ticket  `json:"created_tickets"`
	Message         string    `json:"message"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login signs in and stores the access token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	return c.session(ctx, "auth/login", map[string]any{"email": email, "password": password})
}

// DevLogin mints a local token; the server must run with dev login enabled.
func (c *Client) DevLogin(ctx context.Context, email, name string) (Session, error) {
	return c.session(ctx, "auth/dev/login", map[string]any{"email": email, "name": name})
}

func (c *Client) session(ctx context.Context, endpoint string, body any) (Session, error) {
	var resp Session
	if err := c.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return Session{}, err
	}
	c.BearerToken = resp.AccessToken
	return resp, nil
}

func (c *Client) CreateProject(ctx context.Context, title, description string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", map[string]any{"title": title, "description": description}, &resp)
	return resp, err
}

// ListProjects returns one page of projects, newest first, plus the total.
func (c *Client) ListProjects(ctx context.Context, page, size int) ([]Project, int, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if size > 0 {
		q.Set("size", fmt.Sprint(size))
	}
	var resp struct {
		Projects []Project `json:"projects"`
		Total    int       `json:"total"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("projects", q), nil, &resp)
	return resp.Projects, resp.Total, err
}

func (c *Client) CreateTicket(ctx context.Context, in TicketInput) (Ticket, error) {
	var resp Ticket
	err := c.do(ctx, http.MethodPost, "tickets", in, &resp)
	return resp, err
}

func (c *Client) ListTickets(ctx context.Context, f TicketFilter) ([]Ticket, int, error) {
	q := f.values()
	if f.Page > 0 {
		q.Set("page", fmt.Sprint(f.Page))
	}
	if f.Size > 0 {
		q.Set("size", fmt.Sprint(f.Size))
	}
	var resp struct {
		Tickets []Ticket `json:"tickets"`
		Total   int      `json:"total"`
	}
	err := c.do(ctx, http.MethodGet, withQuery("tickets", q), nil, &resp)
	return resp.Tickets, resp.Total, err
}

// SmartCreate sends free text to the smart-create endpoint. projectID may be
// empty.
func (c *Client) SmartCreate(ctx context.Context, text, projectID string) (CreationResult, error) {
	body := map[string]any{"text": text}
	if projectID != "" {
		body["project_id"] = projectID
	}
	var resp CreationResult
	err := c.do(ctx, http.MethodPost, "create", body, &resp)
	return resp, err
}

// ExportTicketsCSV returns the raw CSV export.
func (c *Client) ExportTicketsCSV(ctx context.Context, f TicketFilter) ([]byte, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, withQuery("export/tickets/csv", f.values()), nil, &buf)
	return buf.Bytes(), err
}

func (f TicketFilter) values() url.Values {
	q := url.Values{}
	list := func(key string, values []string) {
		if len(values) > 0 {
			q.Set(key, strings.Join(values, ","))
		}
	}
	list("project_ids", f.ProjectIDs)
	list("statuses", f.Statuses)
	list("assigned_to_ids", f.AssignedToIDs)
	list("created_by_ids", f.CreatedByIDs)
	priorities := make([]string, len(f.Priorities))
	for i, p := range f.Priorities {
		priorities[i] = strconv.Itoa(p)
	}
	list("priorities", priorities)
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case io.Writer:
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

package bradboardsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bradboard/internal/db"
	"bradboard/internal/engine"
	"bradboard/internal/identity"
	"bradboard/internal/llm"
	"bradboard/internal/migrate"
	"bradboard/internal/server"
	"bradboard/internal/smartcreate"
)

func newServer(t *testing.T) *Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	handler, err := server.New(server.Config{
		Engine:      e,
		SmartCreate: smartcreate.New(smartcreate.EngineStore{Engine: e}, llm.Mock{}),
		Auth: server.AuthConfig{
			Authenticator: identity.JWTVerifier{Secret: "sdk"},
			JWTSecret:     "sdk",
			DevLogin:      true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api/v1")
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)
	if _, err := c.DevLogin(ctx, "dev@example.com", "Dev"); err != nil {
		t.Fatalf("dev login: %v", err)
	}
	p, err := c.CreateProject(ctx, "SDK", "Created from the SDK")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := c.CreateTicket(ctx, TicketInput{Title: "First", Description: "d", ProjectID: p.ID, Priority: 3}); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	projects, total, err := c.ListProjects(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if total != 1 || len(projects) != 1 {
		t.Fatalf("expected one project, got %d (%d)", total, len(projects))
	}

	res, err := c.SmartCreate(ctx, "fix the login bug", p.ID)
	if err != nil {
		t.Fatalf("smart create: %v", err)
	}
	if len(res.CreatedTickets) != 1 || res.CreatedTickets[0].ProjectID != p.ID {
		t.Fatalf("unexpected smart create result: %+v", res)
	}

	tickets, _, err := c.ListTickets(ctx, TicketFilter{ProjectIDs: []string{p.ID}})
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	var titles []string
	for _, tk := range tickets {
		titles = append(titles, tk.Title)
	}
	// priority 3 sorts after the medium-priority smart ticket
	if diff := cmp.Diff([]string{"Fix the login bug", "First"}, titles); diff != "" {
		t.Fatalf("ticket order mismatch (-want +got):\n%s", diff)
	}

	_, total, err = c.ListTickets(ctx, TicketFilter{Statuses: []string{"open", "done"}, Priorities: []int{2, 3}})
	if err != nil {
		t.Fatalf("list tickets by status and priority: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected both tickets for statuses open,done and priorities 2,3, got %d", total)
	}

	csv, err := c.ExportTicketsCSV(ctx, TicketFilter{Priorities: []int{3}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(csv)), "\n"); len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %q", csv)
	}
}

func TestClientAPIError(t *testing.T) {
	c := newServer(t)
	_, err := c.CreateProject(context.Background(), "x", "y")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 api error, got %v", err)
	}
	var env map[string]map[string]any
	if err := json.Unmarshal([]byte(apiErr.Body), &env); err != nil {
		t.Fatalf("error body not json: %v", err)
	}
	if env["error"]["code"] != "unauthorized" {
		t.Fatalf("unexpected error body: %s", apiErr.Body)
	}
}

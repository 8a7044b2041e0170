package mcpserver

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bradboard/internal/db"
	"bradboard/internal/domain"
	"bradboard/internal/engine"
	"bradboard/internal/llm"
	"bradboard/internal/migrate"
	"bradboard/internal/smartcreate"
)

var bot = domain.Actor{ID: "agent-1", Name: "Agent"}

func newTestServer(t *testing.T) (*Server, engine.Engine) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	e := engine.New(conn)
	svc := smartcreate.New(smartcreate.EngineStore{Engine: e}, llm.Mock{})
	s, err := New(e, svc, bot, nil)
	require.NoError(t, err)
	return s, e
}

func TestNewRequiresActor(t *testing.T) {
	_, err := New(engine.Engine{}, smartcreate.New(nil, llm.Mock{}), domain.Actor{}, nil)
	require.Error(t, err)
	_, err = New(engine.Engine{}, nil, bot, nil)
	require.Error(t, err)
}

func TestCreateProjectThenTicket(t *testing.T) {
	s, e := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleCreateProject(ctx, nil, CreateProjectArgs{Title: "Billing", Description: "Invoices"})
	require.NoError(t, err)
	res := out.(smartcreate.CreationResult)
	require.Len(t, res.CreatedProjects, 1)
	assert.Equal(t, "Successfully created 1 projects and 0 tickets", res.Message)
	projectID := res.CreatedProjects[0].ID

	_, out, err = s.handleCreateTicket(ctx, nil, CreateTicketArgs{
		Title:       "Send reminders",
		Description: "Email overdue customers",
		ProjectID:   projectID,
		Priority:    3,
	})
	require.NoError(t, err)
	res = out.(smartcreate.CreationResult)
	require.Len(t, res.CreatedTickets, 1)
	tk := res.CreatedTickets[0]
	assert.Equal(t, projectID, tk.ProjectID)
	assert.Equal(t, domain.PriorityHigh, tk.Priority)
	assert.Equal(t, domain.StatusOpen, tk.Status)
	assert.Equal(t, bot.ID, tk.CreatedByID)

	got, err := e.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Billing", got.ProjectTitle)
}

func TestCreateTicketRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleCreateTicket(ctx, nil, CreateTicketArgs{Title: "x", Description: "y", ProjectID: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, smartcreate.ErrValidation)

	_, _, err = s.handleCreateTicket(ctx, nil, CreateTicketArgs{Title: "x", Description: "y", ProjectID: "p", Priority: 9})
	require.Error(t, err)
	assert.ErrorIs(t, err, smartcreate.ErrValidation)
}

func TestSmartCreateAndList(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleSmartCreate(ctx, nil, SmartCreateArgs{Text: "Launch the mobile app. Urgent, high priority."})
	require.NoError(t, err)
	res := out.(smartcreate.CreationResult)
	require.Len(t, res.CreatedProjects, 1)
	require.Len(t, res.CreatedTickets, 1)
	assert.Equal(t, res.CreatedProjects[0].ID, res.CreatedTickets[0].ProjectID)

	_, out, err = s.handleListProjects(ctx, nil, ListProjectsArgs{})
	require.NoError(t, err)
	projects := out.(ProjectList)
	assert.Equal(t, 1, projects.Total)
	assert.Equal(t, engine.DefaultPageSize, projects.Size)

	_, out, err = s.handleListTickets(ctx, nil, ListTicketsArgs{ProjectID: res.CreatedProjects[0].ID, Status: "open"})
	require.NoError(t, err)
	tickets := out.(TicketList)
	require.Len(t, tickets.Tickets, 1)
	assert.Equal(t, res.CreatedProjects[0].Title, tickets.Tickets[0].ProjectTitle)

	_, out, err = s.handleListTickets(ctx, nil, ListTicketsArgs{Status: "done"})
	require.NoError(t, err)
	assert.Empty(t, out.(TicketList).Tickets)

	_, _, err = s.handleListProjects(ctx, nil, ListProjectsArgs{Size: 500})
	require.Error(t, err)
}

func TestSmartCreateEmptyText(t *testing.T) {
	s, _ := newTestServer(t)
	_, _, err := s.handleSmartCreate(context.Background(), nil, SmartCreateArgs{Text: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, smartcreate.ErrValidation)
}

func TestToolsOverTransport(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, serverT, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	defer cs.Close()

	list, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"create_project", "create_ticket", "list_projects", "list_tickets", "smart_create"}, names)

	for _, tool := range list.Tools {
		if tool.Name != "create_ticket" {
			continue
		}
		schema := decodeSchema(t, tool.InputSchema)
		assert.Equal(t, []any{"open", "in progress", "done"}, schema.Properties["status"].Enum)
		assert.Equal(t, []any{1.0, 2.0, 3.0}, schema.Properties["priority"].Enum)
	}

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "create_project",
		Arguments: map[string]any{"title": "Ops", "description": "Runbooks"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
}

type toolSchema struct {
	Properties map[string]struct {
		Description string `json:"description"`
		Enum        []any  `json:"enum"`
	} `json:"properties"`
	Required []string `json:"required"`
}

func decodeSchema(t *testing.T, schema any) toolSchema {
	t.Helper()
	raw, err := json.Marshal(schema)
	require.NoError(t, err)
	var out toolSchema
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestCatalogToolSchemaFollowsCatalog(t *testing.T) {
	tool, err := catalogTool[CreateTicketArgs](smartcreate.ToolCreateTicket)
	require.NoError(t, err)
	spec, ok := smartcreate.Lookup(smartcreate.ToolCreateTicket)
	require.True(t, ok)
	assert.Equal(t, spec.Description, tool.Description)

	schema := decodeSchema(t, tool.InputSchema)
	require.Len(t, schema.Properties, len(spec.Params))
	for _, p := range spec.Params {
		assert.Equal(t, p.Description, schema.Properties[p.Name].Description, p.Name)
	}
	assert.Equal(t, []any{1.0, 2.0, 3.0}, schema.Properties["priority"].Enum)
	assert.Equal(t, []any{"open", "in progress", "done"}, schema.Properties["status"].Enum)
	assert.Empty(t, schema.Properties["title"].Enum)
	assert.ElementsMatch(t, []string{"title", "description", "project_id"}, schema.Required)

	_, err = catalogTool[SmartCreateArgs](smartcreate.ToolCreateTicket)
	require.Error(t, err)
	_, err = catalogTool[CreateProjectArgs]("smart_create")
	require.Error(t, err)
}

func TestCreateTicketRejectsOutOfEnumOverTransport(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := s.MCP().Connect(ctx, serverT, nil)
	require.NoError(t, err)
	defer ss.Close()
	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	defer cs.Close()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "create_ticket",
		Arguments: map[string]any{"title": "t", "description": "d", "project_id": "p", "status": "blocked"},
	})
	if err == nil {
		assert.True(t, res.IsError)
	}
}

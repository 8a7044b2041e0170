// Package mcpserver exposes the board and the smart create catalog as
// Model Context Protocol tools, so an MCP client can file work directly or
// hand over free text.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"bradboard/internal/config"
	"bradboard/internal/domain"
	"bradboard/internal/engine"
	"bradboard/internal/llm"
	"bradboard/internal/repo"
	"bradboard/internal/smartcreate"
)

const serverName = "bradboard"

// Server wraps the MCP server with the engine and smart create service.
// Every write is attributed to a single actor fixed at startup.
type Server struct {
	engine engine.Engine
	smart  *smartcreate.Service
	actor  domain.Actor
	logger *zap.Logger
	server *mcp.Server
}

// New creates an MCP server acting as actor.
func New(e engine.Engine, svc *smartcreate.Service, actor domain.Actor, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("mcpserver: smart create service is required")
	}
	if strings.TrimSpace(actor.ID) == "" {
		return nil, errors.New("mcpserver: actor id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{engine: e, smart: svc, actor: actor, logger: logger}
	s.server = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: config.Version}, nil)
	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// Run serves MCP over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server started", zap.String("actor_id", s.actor.ID))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCP returns the underlying server, for custom transports.
func (s *Server) MCP() *mcp.Server { return s.server }

func (s *Server) registerTools() error {
	project, err := catalogTool[CreateProjectArgs](smartcreate.ToolCreateProject)
	if err != nil {
		return err
	}
	mcp.AddTool(s.server, project, s.handleCreateProject)
	ticket, err := catalogTool[CreateTicketArgs](smartcreate.ToolCreateTicket)
	if err != nil {
		return err
	}
	mcp.AddTool(s.server, ticket, s.handleCreateTicket)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "smart_create",
		Description: "Turn a free text description of work into projects and tickets. " +
			"Everything described is created in one transaction or nothing is. " +
			"Pass project_id to prefer an existing project for new tickets.",
	}, s.handleSmartCreate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_projects",
		Description: "List projects, newest first. Use the ids with create_ticket or smart_create.",
	}, s.handleListProjects)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_tickets",
		Description: "List tickets with their project title, newest first. All filters are optional.",
	}, s.handleListTickets)
	return nil
}

// catalogTool describes a smart create catalog entry as an MCP tool. The
// input schema is inferred from In, then annotated with the catalog's
// parameter descriptions and allowed values.
func catalogTool[In any](name string) (*mcp.Tool, error) {
	spec, ok := smartcreate.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("mcpserver: %q is not in the tool catalog", name)
	}
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: input schema for %s: %w", name, err)
	}
	for _, p := range spec.Params {
		prop, ok := schema.Properties[p.Name]
		if !ok {
			return nil, fmt.Errorf("mcpserver: %s has no %q argument", name, p.Name)
		}
		prop.Description = p.Description
		prop.Enum = nil
		for _, v := range p.Enum {
			e, err := enumValue(p.Type, v)
			if err != nil {
				return nil, fmt.Errorf("mcpserver: %s.%s: %w", name, p.Name, err)
			}
			prop.Enum = append(prop.Enum, e)
		}
	}
	return &mcp.Tool{Name: spec.Name, Description: spec.Description, InputSchema: schema}, nil
}

// enumValue converts a catalog enum literal to its JSON value. Integers are
// float64, the type decoded arguments carry.
func enumValue(typ llm.ParamType, literal string) (any, error) {
	if typ != llm.TypeInteger {
		return literal, nil
	}
	n, err := strconv.Atoi(literal)
	if err != nil {
		return nil, err
	}
	return float64(n), nil
}

// CreateProjectArgs defines input for create_project. Argument descriptions
// come from the smart create catalog.
type CreateProjectArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateTicketArgs defines input for create_ticket.
type CreateTicketArgs struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	ProjectID      string `json:"project_id"`
	Priority       int    `json:"priority,omitempty"`
	Status         string `json:"status,omitempty"`
	AssignedToID   string `json:"assigned_to_id,omitempty"`
	AssignedToName string `json:"assigned_to_name,omitempty"`
}

// SmartCreateArgs defines input for smart_create.
type SmartCreateArgs struct {
	Text      string `json:"text" jsonschema:"Free text describing the projects and tickets to create"`
	ProjectID string `json:"project_id,omitempty" jsonschema:"Existing project to prefer for new tickets"`
}

// ListProjectsArgs defines input for list_projects.
type ListProjectsArgs struct {
	Page int `json:"page,omitempty" jsonschema:"Page number starting at 1 (default 1)"`
	Size int `json:"size,omitempty" jsonschema:"Page size between 1 and 100 (default 50)"`
}

// ListTicketsArgs defines input for list_tickets.
type ListTicketsArgs struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"Only tickets of this project"`
	Status    string `json:"status,omitempty" jsonschema:"Only tickets in this status: open, in progress or done"`
	Search    string `json:"search,omitempty" jsonschema:"Case insensitive match on title or description"`
	Page      int    `json:"page,omitempty" jsonschema:"Page number starting at 1 (default 1)"`
	Size      int    `json:"size,omitempty" jsonschema:"Page size between 1 and 100 (default 50)"`
}

// ProjectList is the output of list_projects.
type ProjectList struct {
	Projects []domain.Project `json:"projects"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
}

// TicketList is the output of list_tickets.
type TicketList struct {
	Tickets []domain.TicketWithProject `json:"tickets"`
	Total   int                        `json:"total"`
	Page    int                        `json:"page"`
	Size    int                        `json:"size"`
}

func (s *Server) handleCreateProject(ctx context.Context, req *mcp.CallToolRequest, args CreateProjectArgs) (*mcp.CallToolResult, any, error) {
	return s.apply(ctx, smartcreate.ToolCreateProject, args)
}

func (s *Server) handleCreateTicket(ctx context.Context, req *mcp.CallToolRequest, args CreateTicketArgs) (*mcp.CallToolResult, any, error) {
	return s.apply(ctx, smartcreate.ToolCreateTicket, args)
}

// apply routes a direct tool call through the same validation and dispatch
// the model's calls take.
func (s *Server) apply(ctx context.Context, name string, args any) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s arguments: %w", name, err)
	}
	res, err := s.smart.Apply(ctx, smartcreate.ApplyRequest{
		Calls: []llm.Call{{Name: name, Arguments: raw}},
		Actor: s.actor,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return nil, res, nil
}

func (s *Server) handleSmartCreate(ctx context.Context, req *mcp.CallToolRequest, args SmartCreateArgs) (*mcp.CallToolResult, any, error) {
	res, err := s.smart.ProcessText(ctx, smartcreate.Request{
		Text:          args.Text,
		HintProjectID: strings.TrimSpace(args.ProjectID),
		Actor:         s.actor,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("smart creation failed: %w", err)
	}
	return nil, res, nil
}

func (s *Server) handleListProjects(ctx context.Context, req *mcp.CallToolRequest, args ListProjectsArgs) (*mcp.CallToolResult, any, error) {
	page, size, err := engine.ValidatePage(args.Page, args.Size)
	if err != nil {
		return nil, nil, err
	}
	items, total, err := s.engine.ListProjects(ctx, page, size)
	if err != nil {
		return nil, nil, fmt.Errorf("list projects: %w", err)
	}
	if items == nil {
		items = []domain.Project{}
	}
	return nil, ProjectList{Projects: items, Total: total, Page: page, Size: size}, nil
}

func (s *Server) handleListTickets(ctx context.Context, req *mcp.CallToolRequest, args ListTicketsArgs) (*mcp.CallToolResult, any, error) {
	page, size, err := engine.ValidatePage(args.Page, args.Size)
	if err != nil {
		return nil, nil, err
	}
	f := repo.TicketFilters{Search: strings.TrimSpace(args.Search), Page: page, Size: size}
	if id := strings.TrimSpace(args.ProjectID); id != "" {
		f.ProjectIDs = []string{id}
	}
	if st := strings.TrimSpace(args.Status); st != "" {
		f.Statuses = []domain.Status{domain.Status(st)}
	}
	items, total, err := s.engine.ListTickets(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list tickets: %w", err)
	}
	if items == nil {
		items = []domain.TicketWithProject{}
	}
	return nil, TicketList{Tickets: items, Total: total, Page: page, Size: size}, nil
}

package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"bradboard/internal/domain"
	"bradboard/internal/engine"
	"bradboard/internal/export"
	"bradboard/internal/repo"
	"bradboard/internal/smartcreate"
)

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		items, err := e.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := e.GetUser(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPut,
		Path:        "/users/{user_id}",
		Summary:     "Rename your own user record",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Name   string `query:"name" required:"true" minLength:"1"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.UpdateUserName(ctx, actor, input.UserID, input.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, domain.ProjectCreate{Title: input.Body.Title, Description: input.Body.Description}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Page int `query:"page" minimum:"1" default:"1"`
		Size int `query:"size" minimum:"1" maximum:"100" default:"50"`
	}) (*struct {
		Body ProjectListResponse `json:"body"`
	}, error) {
		page, size, err := engine.ValidatePage(input.Page, input.Size)
		if err != nil {
			return nil, handleError(err)
		}
		items, total, err := e.ListProjects(ctx, page, size)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectListResponse `json:"body"`
		}{Body: ProjectListResponse{Projects: items, Total: total, Page: page, Size: size}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := e.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}",
		Summary:     "Update project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProject(ctx, input.ProjectID, domain.ProjectUpdate{Title: input.Body.Title, Description: input.Body.Description}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project and its tickets",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProject(ctx, input.ProjectID, actor); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Project deleted successfully"}}, nil
	})
}

func registerTickets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-ticket",
		Method:        http.MethodPost,
		Path:          "/tickets",
		Summary:       "Create ticket",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateTicketRequest `json:"body"`
	}) (*struct {
		Body domain.Ticket `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b := input.Body
		t, err := e.CreateTicket(ctx, domain.TicketCreate{
			Title:          b.Title,
			Description:    b.Description,
			ProjectID:      b.ProjectID,
			Status:         b.Status,
			Priority:       b.Priority,
			AssignedToID:   b.AssignedToID,
			AssignedToName: b.AssignedToName,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Ticket `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tickets",
		Method:      http.MethodGet,
		Path:        "/tickets",
		Summary:     "List tickets by priority, then newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TicketQuery
		Page int `query:"page" minimum:"1" default:"1"`
		Size int `query:"size" minimum:"1" maximum:"100" default:"50"`
	}) (*struct {
		Body TicketListResponse `json:"body"`
	}, error) {
		f, err := ticketFilters(input.TicketQuery)
		if err != nil {
			return nil, err
		}
		f.Page, f.Size = input.Page, input.Size
		items, total, err := e.ListTickets(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		page, size, _ := engine.ValidatePage(input.Page, input.Size)
		return &struct {
			Body TicketListResponse `json:"body"`
		}{Body: TicketListResponse{Tickets: items, Total: total, Page: page, Size: size}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-ticket",
		Method:      http.MethodGet,
		Path:        "/tickets/{ticket_id}",
		Summary:     "Get ticket",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketID string `path:"ticket_id"`
	}) (*struct {
		Body domain.TicketWithProject `json:"body"`
	}, error) {
		t, err := e.GetTicket(ctx, input.TicketID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TicketWithProject `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-ticket",
		Method:      http.MethodPut,
		Path:        "/tickets/{ticket_id}",
		Summary:     "Update ticket",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketID string              `path:"ticket_id"`
		Body     UpdateTicketRequest `json:"body"`
	}) (*struct {
		Body domain.TicketWithProject `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b := input.Body
		t, err := e.UpdateTicket(ctx, input.TicketID, domain.TicketUpdate{
			Title:          b.Title,
			Description:    b.Description,
			ProjectID:      b.ProjectID,
			Status:         b.Status,
			Priority:       b.Priority,
			AssignedToID:   b.AssignedToID,
			AssignedToName: b.AssignedToName,
		}, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TicketWithProject `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-ticket",
		Method:      http.MethodDelete,
		Path:        "/tickets/{ticket_id}",
		Summary:     "Delete ticket",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TicketID string `path:"ticket_id"`
	}) (*struct {
		Body MessageResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTicket(ctx, input.TicketID, actor); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MessageResponse `json:"body"`
		}{Body: MessageResponse{Message: "Ticket deleted successfully"}}, nil
	})
}

func registerSmartCreate(api huma.API, svc *smartcreate.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "smart-create",
		Method:      http.MethodPost,
		Path:        "/create",
		Summary:     "Create projects and tickets from free text",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SmartCreateRequest `json:"body"`
	}) (*struct {
		Body smartcreate.CreationResult `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		hint := ""
		if input.Body.ProjectID != nil {
			hint = strings.TrimSpace(*input.Body.ProjectID)
		}
		res, err := svc.ProcessText(ctx, smartcreate.Request{Text: input.Body.Text, HintProjectID: hint, Actor: actor})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body smartcreate.CreationResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerExport(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "export-tickets-csv",
		Method:      http.MethodGet,
		Path:        "/export/tickets/csv",
		Summary:     "Export tickets as CSV",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TicketQuery
	}) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		f, err := ticketFilters(input.TicketQuery)
		if err != nil {
			return nil, err
		}
		items, err := e.ExportTickets(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		var buf bytes.Buffer
		if err := export.TicketsCSV(&buf, items); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        "text/csv",
			ContentDisposition: "attachment; filename=" + export.TicketsFilename,
			Body:               buf.Bytes(),
		}, nil
	})
}

func ticketFilters(q TicketQuery) (repo.TicketFilters, error) {
	f := repo.TicketFilters{
		ProjectIDs:    splitList(q.ProjectIDs),
		AssignedToIDs: splitList(q.AssignedToIDs),
		CreatedByIDs:  splitList(q.CreatedByIDs),
		Search:        strings.TrimSpace(q.Search),
	}
	for _, s := range splitList(q.Statuses) {
		f.Statuses = append(f.Statuses, domain.Status(s))
	}
	for _, p := range splitList(q.Priorities) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return f, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid priority %q", p), map[string]any{"field": "priorities"})
		}
		f.Priorities = append(f.Priorities, domain.Priority(n))
	}
	return f, nil
}

// splitList flattens comma-separated query values, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

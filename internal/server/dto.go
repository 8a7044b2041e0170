package server

import (
	"bradboard/internal/domain"
	"bradboard/internal/identity"
)

// Request payloads

type RegisterRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"6"`
	Name     string `json:"name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"1"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" minLength:"1"`
}

type DevLoginRequest struct {
	Email string `json:"email" format:"email"`
	Name  string `json:"name,omitempty"`
	ID    string `json:"id,omitempty" doc:"Defaults to a stable id derived from the email"`
}

type CreateProjectRequest struct {
	Title       string `json:"title" minLength:"1"`
	Description string `json:"description" minLength:"1"`
}

type UpdateProjectRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateTicketRequest struct {
	Title          string          `json:"title" minLength:"1"`
	Description    string          `json:"description" minLength:"1"`
	ProjectID      string          `json:"project_id" minLength:"1"`
	Status         domain.Status   `json:"status,omitempty" enum:"open,in progress,done"`
	Priority       domain.Priority `json:"priority,omitempty" enum:"1,2,3"`
	AssignedToID   *string         `json:"assigned_to_id,omitempty"`
	AssignedToName *string         `json:"assigned_to_name,omitempty"`
}

type UpdateTicketRequest struct {
	Title          *string          `json:"title,omitempty"`
	Description    *string          `json:"description,omitempty"`
	ProjectID      *string          `json:"project_id,omitempty"`
	Status         *domain.Status   `json:"status,omitempty" enum:"open,in progress,done"`
	Priority       *domain.Priority `json:"priority,omitempty" enum:"1,2,3"`
	AssignedToID   *string          `json:"assigned_to_id,omitempty"`
	AssignedToName *string          `json:"assigned_to_name,omitempty"`
}

type SmartCreateRequest struct {
	Text      string  `json:"text" minLength:"1"`
	ProjectID *string `json:"project_id,omitempty" doc:"Project to prefer for new tickets"`
}

// TicketQuery holds the ticket list and export filters. Every list filter
// takes comma-separated values.
type TicketQuery struct {
	ProjectIDs    []string `query:"project_ids" doc:"Comma-separated project ids"`
	Statuses      []string `query:"statuses" doc:"Comma-separated statuses (open, in progress, done)"`
	Priorities    []string `query:"priorities" doc:"Comma-separated priorities (1-3)"`
	AssignedToIDs []string `query:"assigned_to_ids" doc:"Comma-separated assignee ids"`
	CreatedByIDs  []string `query:"created_by_ids" doc:"Comma-separated creator ids"`
	Search        string   `query:"search" doc:"Case-insensitive match on title or description"`
}

// Response payloads

type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Service string `json:"service" example:"bradboard-api"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TokenType    string       `json:"token_type"`
	User         *domain.User `json:"user,omitempty"`
}

type ProjectListResponse struct {
	Projects []domain.Project `json:"projects"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Size     int              `json:"size"`
}

type TicketListResponse struct {
	Tickets []domain.TicketWithProject `json:"tickets"`
	Total   int                        `json:"total"`
	Page    int                        `json:"page"`
	Size    int                        `json:"size"`
}

func authResponse(s identity.Session, u *domain.User) AuthResponse {
	tt := s.TokenType
	if tt == "" {
		tt = "bearer"
	}
	return AuthResponse{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, TokenType: tt, User: u}
}

package smartcreate

import (
	"fmt"

	"bradboard/internal/domain"
)

// CreationResult summarizes one smart-create request.
type CreationResult struct {
	CreatedProjects []domain.Project `json:"created_projects"`
	CreatedTickets  []domain.Ticket  `json:"created_tickets"`
	Message         string           `json:"message"`
}

func (r CreationResult) finish() CreationResult {
	if r.CreatedProjects == nil {
		r.CreatedProjects = []domain.Project{}
	}
	if r.CreatedTickets == nil {
		r.CreatedTickets = []domain.Ticket{}
	}
	r.Message = fmt.Sprintf("Successfully created %d projects and %d tickets", len(r.CreatedProjects), len(r.CreatedTickets))
	return r
}

func (r CreationResult) projectIDs() []string {
	ids := make([]string, 0, len(r.CreatedProjects))
	for _, p := range r.CreatedProjects {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r CreationResult) ticketIDs() []string {
	ids := make([]string, 0, len(r.CreatedTickets))
	for _, t := range r.CreatedTickets {
		ids = append(ids, t.ID)
	}
	return ids
}

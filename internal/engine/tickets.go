package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"bradboard/internal/domain"
	"bradboard/internal/events"
	"bradboard/internal/repo"
)

// normalizeAssignee treats blank values as unset and requires id and name
// to be supplied together.
func normalizeAssignee(id, name *string) (*string, *string, error) {
	if id != nil && strings.TrimSpace(*id) == "" {
		id = nil
	}
	if name != nil && strings.TrimSpace(*name) == "" {
		name = nil
	}
	if (id == nil) != (name == nil) {
		return nil, nil, ValidationError{Field: "assigned_to", Reason: "assigned_to_id and assigned_to_name must be set together"}
	}
	if id != nil {
		i, n := strings.TrimSpace(*id), strings.TrimSpace(*name)
		return &i, &n, nil
	}
	return nil, nil, nil
}

func (e Engine) requireProject(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ValidationError{Field: "project_id", Reason: "is required"}
	}
	_, err := e.Repo.GetProject(ctx, id)
	return notFound(err, "Project", id)
}

// CreateTicket creates a ticket in an existing project. Status defaults to
// open and priority to medium.
func (e Engine) CreateTicket(ctx context.Context, in domain.TicketCreate, actor domain.Actor) (domain.Ticket, error) {
	if err := validateActor(actor); err != nil {
		return domain.Ticket{}, err
	}
	title, err := requireText("title", in.Title)
	if err != nil {
		return domain.Ticket{}, err
	}
	desc, err := requireText("description", in.Description)
	if err != nil {
		return domain.Ticket{}, err
	}
	if in.Status == "" {
		in.Status = domain.StatusOpen
	}
	if !in.Status.Valid() {
		return domain.Ticket{}, ValidationError{Field: "status", Reason: "must be one of open, in progress, done"}
	}
	if in.Priority == 0 {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return domain.Ticket{}, ValidationError{Field: "priority", Reason: "must be 1, 2 or 3"}
	}
	assignedID, assignedName, err := normalizeAssignee(in.AssignedToID, in.AssignedToName)
	if err != nil {
		return domain.Ticket{}, err
	}
	now := e.timestamp()
	t := domain.Ticket{
		ID:             newID(),
		Title:          title,
		Description:    desc,
		ProjectID:      strings.TrimSpace(in.ProjectID),
		Status:         in.Status,
		Priority:       in.Priority,
		AssignedToID:   assignedID,
		AssignedToName: assignedName,
		CreatedByID:    actor.ID,
		CreatedByName:  actorName(actor),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = e.InTx(ctx, func(tx Engine) error {
		if err := tx.requireProject(ctx, t.ProjectID); err != nil {
			return err
		}
		if err := tx.Repo.InsertTicket(ctx, t); err != nil {
			return err
		}
		return tx.appendEvent(ctx, events.TicketCreated, t.ProjectID, "ticket", t.ID, actor, events.EventPayload{
			"title":    t.Title,
			"status":   t.Status,
			"priority": t.Priority,
		})
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	e.log().Debug("ticket created", zap.String("ticket_id", t.ID), zap.String("project_id", t.ProjectID))
	return t, nil
}

func (e Engine) GetTicket(ctx context.Context, id string) (domain.TicketWithProject, error) {
	t, err := e.Repo.GetTicket(ctx, id)
	return t, notFound(err, "Ticket", id)
}

// ListTickets validates paging and returns matching tickets plus the total.
func (e Engine) ListTickets(ctx context.Context, f repo.TicketFilters) ([]domain.TicketWithProject, int, error) {
	page, size, err := ValidatePage(f.Page, f.Size)
	if err != nil {
		return nil, 0, err
	}
	f.Page, f.Size = page, size
	if err := validateFilters(f); err != nil {
		return nil, 0, err
	}
	return e.Repo.ListTickets(ctx, f)
}

// ExportTickets returns every ticket matching f, ignoring paging.
func (e Engine) ExportTickets(ctx context.Context, f repo.TicketFilters) ([]domain.TicketWithProject, error) {
	if err := validateFilters(f); err != nil {
		return nil, err
	}
	f.Page, f.Size = 0, 0
	items, _, err := e.Repo.ListTickets(ctx, f)
	return items, err
}

func validateFilters(f repo.TicketFilters) error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return ValidationError{Field: "statuses", Reason: "unknown status " + string(s)}
		}
	}
	for _, p := range f.Priorities {
		if !p.Valid() {
			return ValidationError{Field: "priorities", Reason: "must be 1, 2 or 3"}
		}
	}
	return nil
}

// UpdateTicket applies the non-nil fields of upd. A changed project must
// exist; blank assignee fields clear the assignment.
func (e Engine) UpdateTicket(ctx context.Context, id string, upd domain.TicketUpdate, actor domain.Actor) (domain.TicketWithProject, error) {
	if err := validateActor(actor); err != nil {
		return domain.TicketWithProject{}, err
	}
	var out domain.TicketWithProject
	err := e.InTx(ctx, func(tx Engine) error {
		current, err := tx.Repo.GetTicket(ctx, id)
		if err != nil {
			return notFound(err, "Ticket", id)
		}
		t := current.Ticket
		from := t
		if upd.Title != nil {
			if t.Title, err = requireText("title", *upd.Title); err != nil {
				return err
			}
		}
		if upd.Description != nil {
			if t.Description, err = requireText("description", *upd.Description); err != nil {
				return err
			}
		}
		if upd.ProjectID != nil && strings.TrimSpace(*upd.ProjectID) != t.ProjectID {
			pid := strings.TrimSpace(*upd.ProjectID)
			if err := tx.requireProject(ctx, pid); err != nil {
				return err
			}
			t.ProjectID = pid
		}
		if upd.Status != nil {
			if !upd.Status.Valid() {
				return ValidationError{Field: "status", Reason: "must be one of open, in progress, done"}
			}
			t.Status = *upd.Status
		}
		if upd.Priority != nil {
			if !upd.Priority.Valid() {
				return ValidationError{Field: "priority", Reason: "must be 1, 2 or 3"}
			}
			t.Priority = *upd.Priority
		}
		if upd.AssignedToID != nil || upd.AssignedToName != nil {
			aid, aname := t.AssignedToID, t.AssignedToName
			if upd.AssignedToID != nil {
				aid = upd.AssignedToID
			}
			if upd.AssignedToName != nil {
				aname = upd.AssignedToName
			}
			if t.AssignedToID, t.AssignedToName, err = normalizeAssignee(aid, aname); err != nil {
				return err
			}
		}
		t.UpdatedAt = tx.timestamp()
		if err := tx.Repo.UpdateTicket(ctx, t); err != nil {
			return notFound(err, "Ticket", id)
		}
		if err := tx.appendEvent(ctx, events.TicketUpdated, t.ProjectID, "ticket", t.ID, actor, events.EventPayload{
			"from_status":   from.Status,
			"to_status":     t.Status,
			"from_priority": from.Priority,
			"to_priority":   t.Priority,
		}); err != nil {
			return err
		}
		out, err = tx.Repo.GetTicket(ctx, id)
		return err
	})
	return out, err
}

func (e Engine) DeleteTicket(ctx context.Context, id string, actor domain.Actor) error {
	if err := validateActor(actor); err != nil {
		return err
	}
	return e.InTx(ctx, func(tx Engine) error {
		t, err := tx.Repo.GetTicket(ctx, id)
		if err != nil {
			return notFound(err, "Ticket", id)
		}
		if err := tx.Repo.DeleteTicket(ctx, id); err != nil {
			return notFound(err, "Ticket", id)
		}
		return tx.appendEvent(ctx, events.TicketDeleted, t.ProjectID, "ticket", id, actor, nil)
	})
}

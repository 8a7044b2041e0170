package smartcreate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bradboard/internal/domain"
	"bradboard/internal/engine"
)

type handler func(ctx context.Context, d *dispatch, call ToolCall) error

var handlers = map[string]handler{
	ToolCreateProject: func(ctx context.Context, d *dispatch, call ToolCall) error {
		return d.createProject(ctx, *call.Project)
	},
	ToolCreateTicket: func(ctx context.Context, d *dispatch, call ToolCall) error {
		return d.createTicket(ctx, *call.Ticket)
	},
}

// dispatch holds the state of one request's dispatch pass.
type dispatch struct {
	store  Store
	hint   string
	actor  domain.Actor
	result CreationResult
}

// Dispatch executes calls in order inside one store transaction. The first
// failure rolls back everything created earlier in the same pass.
func Dispatch(ctx context.Context, store Store, calls []ToolCall, hintProjectID string, actor domain.Actor) (CreationResult, error) {
	var out CreationResult
	err := store.Atomic(ctx, func(tx Store) error {
		d := &dispatch{store: tx, hint: strings.TrimSpace(hintProjectID), actor: actor}
		for i, call := range calls {
			h, ok := handlers[call.Name]
			if !ok {
				return validationf(fmt.Sprintf("call %d: unknown tool %q", i+1, call.Name))
			}
			if err := h(ctx, d, call); err != nil {
				return prefixCall(i, err)
			}
		}
		if err := tx.RecordApply(ctx, actor, d.result.projectIDs(), d.result.ticketIDs()); err != nil {
			return storeFailure(err)
		}
		out = d.result
		return nil
	})
	if err != nil {
		var se *Error
		if !errors.As(err, &se) {
			err = storeFailure(err)
		}
		return CreationResult{}, err
	}
	return out.finish(), nil
}

func (d *dispatch) createProject(ctx context.Context, args CreateProjectArgs) error {
	p, err := d.store.CreateProject(ctx, domain.ProjectCreate{Title: args.Title, Description: args.Description}, d.actor)
	if err != nil {
		return storeFailure(err)
	}
	d.result.CreatedProjects = append(d.result.CreatedProjects, p)
	return nil
}

func (d *dispatch) createTicket(ctx context.Context, args CreateTicketArgs) error {
	projectID, err := d.projectFor(args.ProjectID)
	if err != nil {
		return err
	}
	in := domain.TicketCreate{
		Title:       args.Title,
		Description: args.Description,
		ProjectID:   projectID,
		Status:      domain.Status(args.Status),
		Priority:    domain.Priority(args.Priority),
	}
	if args.AssignedToID != "" {
		in.AssignedToID, in.AssignedToName = &args.AssignedToID, &args.AssignedToName
	}
	t, err := d.store.CreateTicket(ctx, in, d.actor)
	if err != nil {
		return storeFailure(err)
	}
	d.result.CreatedTickets = append(d.result.CreatedTickets, t)
	return nil
}

// projectFor picks the ticket's project: the explicit reference (an id, or the
// title of a project created earlier in this pass), then the hint, then the
// latest project created in this pass.
func (d *dispatch) projectFor(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" {
		for i := len(d.result.CreatedProjects) - 1; i >= 0; i-- {
			p := d.result.CreatedProjects[i]
			if p.ID == ref || strings.EqualFold(p.Title, ref) {
				return p.ID, nil
			}
		}
		return ref, nil
	}
	if d.hint != "" {
		return d.hint, nil
	}
	if n := len(d.result.CreatedProjects); n > 0 {
		return d.result.CreatedProjects[n-1].ID, nil
	}
	return "", validationf(fmt.Sprintf("%s: no project_id given and no hint or newly created project to fall back on", ToolCreateTicket))
}

// storeFailure classifies an engine error. Rejected input such as a missing
// project counts as validation; anything else is the store's fault.
func storeFailure(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	var ve engine.ValidationError
	var nf engine.NotFoundError
	if errors.As(err, &ve) || errors.As(err, &nf) {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindStore, Message: fmt.Sprintf("store rejected write: %v", err), Err: err}
}

func prefixCall(i int, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return &Error{Kind: se.Kind, Message: fmt.Sprintf("call %d: %s", i+1, se.Message), Err: se.Err}
	}
	return err
}

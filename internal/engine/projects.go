package engine

import (
	"context"

	"go.uber.org/zap"

	"bradboard/internal/domain"
	"bradboard/internal/events"
)

func (e Engine) CreateProject(ctx context.Context, in domain.ProjectCreate, actor domain.Actor) (domain.Project, error) {
	if err := validateActor(actor); err != nil {
		return domain.Project{}, err
	}
	title, err := requireText("title", in.Title)
	if err != nil {
		return domain.Project{}, err
	}
	desc, err := requireText("description", in.Description)
	if err != nil {
		return domain.Project{}, err
	}
	now := e.timestamp()
	p := domain.Project{
		ID:            newID(),
		Title:         title,
		Description:   desc,
		CreatedByID:   actor.ID,
		CreatedByName: actorName(actor),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = e.InTx(ctx, func(tx Engine) error {
		if err := tx.Repo.InsertProject(ctx, p); err != nil {
			return err
		}
		return tx.appendEvent(ctx, events.ProjectCreated, p.ID, "project", p.ID, actor, events.EventPayload{"title": p.Title})
	})
	if err != nil {
		return domain.Project{}, err
	}
	e.log().Debug("project created", zap.String("project_id", p.ID))
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	return p, notFound(err, "Project", id)
}

// ListProjects returns one page of projects, newest first, plus the total.
func (e Engine) ListProjects(ctx context.Context, page, size int) ([]domain.Project, int, error) {
	page, size, err := ValidatePage(page, size)
	if err != nil {
		return nil, 0, err
	}
	return e.Repo.ListProjects(ctx, page, size)
}

// UpdateProject applies the non-nil fields of upd.
func (e Engine) UpdateProject(ctx context.Context, id string, upd domain.ProjectUpdate, actor domain.Actor) (domain.Project, error) {
	if err := validateActor(actor); err != nil {
		return domain.Project{}, err
	}
	changed := []string{}
	if upd.Title != nil {
		v, err := requireText("title", *upd.Title)
		if err != nil {
			return domain.Project{}, err
		}
		upd.Title = &v
		changed = append(changed, "title")
	}
	if upd.Description != nil {
		v, err := requireText("description", *upd.Description)
		if err != nil {
			return domain.Project{}, err
		}
		upd.Description = &v
		changed = append(changed, "description")
	}
	var out domain.Project
	err := e.InTx(ctx, func(tx Engine) error {
		if err := tx.Repo.UpdateProject(ctx, id, upd, tx.timestamp()); err != nil {
			return notFound(err, "Project", id)
		}
		if err := tx.appendEvent(ctx, events.ProjectUpdated, id, "project", id, actor, events.EventPayload{"fields": changed}); err != nil {
			return err
		}
		p, err := tx.Repo.GetProject(ctx, id)
		out = p
		return err
	})
	return out, err
}

// DeleteProject removes the project and, by cascade, its tickets.
func (e Engine) DeleteProject(ctx context.Context, id string, actor domain.Actor) error {
	if err := validateActor(actor); err != nil {
		return err
	}
	return e.InTx(ctx, func(tx Engine) error {
		if err := tx.Repo.DeleteProject(ctx, id); err != nil {
			return notFound(err, "Project", id)
		}
		return tx.appendEvent(ctx, events.ProjectDeleted, id, "project", id, actor, nil)
	})
}

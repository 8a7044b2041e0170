package engine

import (
	"context"
	"strings"

	"bradboard/internal/domain"
	"bradboard/internal/events"
)

// EnsureUser records an authenticated identity. A blank name falls back to
// the email address.
func (e Engine) EnsureUser(ctx context.Context, u domain.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return ValidationError{Field: "user id", Reason: "is required"}
	}
	if strings.TrimSpace(u.Name) == "" {
		u.Name = u.Email
	}
	return e.Repo.UpsertUser(ctx, u, e.timestamp())
}

func (e Engine) ListUsers(ctx context.Context) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx)
}

func (e Engine) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := e.Repo.GetUser(ctx, id)
	return u, notFound(err, "User", id)
}

func (e Engine) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := e.Repo.GetUserByEmail(ctx, email)
	return u, notFound(err, "User", email)
}

// UpdateUserName renames a user. Actors may only rename themselves.
func (e Engine) UpdateUserName(ctx context.Context, actor domain.Actor, id, name string) (domain.User, error) {
	if actor.ID != id {
		return domain.User{}, ForbiddenError{Reason: "You can only update your own user record"}
	}
	name, err := requireText("name", name)
	if err != nil {
		return domain.User{}, err
	}
	var out domain.User
	err = e.InTx(ctx, func(tx Engine) error {
		if err := tx.Repo.UpdateUserName(ctx, id, name, tx.timestamp()); err != nil {
			return notFound(err, "User", id)
		}
		if err := tx.appendEvent(ctx, events.UserUpdated, "", "user", id, actor, events.EventPayload{"name": name}); err != nil {
			return err
		}
		out, err = tx.Repo.GetUser(ctx, id)
		return err
	})
	return out, err
}

// RecordSmartApply logs a completed smart-create run inside the caller's transaction.
func (e Engine) RecordSmartApply(ctx context.Context, actor domain.Actor, projectIDs, ticketIDs []string) error {
	return e.InTx(ctx, func(tx Engine) error {
		return tx.appendEvent(ctx, events.SmartApplied, "", "smart_create", "", actor, events.EventPayload{
			"project_ids": projectIDs,
			"ticket_ids":  ticketIDs,
		})
	})
}

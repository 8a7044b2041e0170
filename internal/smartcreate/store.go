package smartcreate

import (
	"context"

	"bradboard/internal/domain"
	"bradboard/internal/engine"
)

// Store is the slice of the entity store smart create needs.
type Store interface {
	ListProjects(ctx context.Context, page, size int) ([]domain.Project, int, error)
	CreateProject(ctx context.Context, in domain.ProjectCreate, actor domain.Actor) (domain.Project, error)
	CreateTicket(ctx context.Context, in domain.TicketCreate, actor domain.Actor) (domain.Ticket, error)
	// Atomic runs fn against a Store bound to one transaction.
	Atomic(ctx context.Context, fn func(Store) error) error
	RecordApply(ctx context.Context, actor domain.Actor, projectIDs, ticketIDs []string) error
}

// EngineStore adapts engine.Engine to Store.
type EngineStore struct {
	Engine engine.Engine
}

var _ Store = EngineStore{}

func (s EngineStore) ListProjects(ctx context.Context, page, size int) ([]domain.Project, int, error) {
	return s.Engine.ListProjects(ctx, page, size)
}

func (s EngineStore) CreateProject(ctx context.Context, in domain.ProjectCreate, actor domain.Actor) (domain.Project, error) {
	return s.Engine.CreateProject(ctx, in, actor)
}

func (s EngineStore) CreateTicket(ctx context.Context, in domain.TicketCreate, actor domain.Actor) (domain.Ticket, error) {
	return s.Engine.CreateTicket(ctx, in, actor)
}

func (s EngineStore) Atomic(ctx context.Context, fn func(Store) error) error {
	return s.Engine.InTx(ctx, func(tx engine.Engine) error {
		return fn(EngineStore{Engine: tx})
	})
}

func (s EngineStore) RecordApply(ctx context.Context, actor domain.Actor, projectIDs, ticketIDs []string) error {
	return s.Engine.RecordSmartApply(ctx, actor, projectIDs, ticketIDs)
}

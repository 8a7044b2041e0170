// Package smartcreate turns free text into projects and tickets through one
// round of LLM tool calling: resolve, dispatch, aggregate.
package smartcreate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"bradboard/internal/domain"
	"bradboard/internal/llm"
)

type Request struct {
	Text          string
	HintProjectID string
	Actor         domain.Actor
}

// ApplyRequest carries calls that arrived from somewhere other than the
// model, such as an MCP client invoking catalog tools directly.
type ApplyRequest struct {
	Calls         []llm.Call
	HintProjectID string
	Actor         domain.Actor
}

type Service struct {
	Store           Store
	LLM             llm.Client
	ContextProjects int
	Logger          *zap.Logger
}

func New(store Store, client llm.Client) *Service {
	return &Service{Store: store, LLM: client, ContextProjects: DefaultContextProjects, Logger: zap.NewNop()}
}

func (s *Service) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// ProcessText resolves text into tool calls and applies them atomically.
func (s *Service) ProcessText(ctx context.Context, req Request) (CreationResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return CreationResult{}, validationf("text is required")
	}
	if strings.TrimSpace(req.Actor.ID) == "" {
		return CreationResult{}, validationf("actor is required")
	}
	resolver := Resolver{LLM: s.LLM, Store: s.Store, ContextProjects: s.ContextProjects, Logger: s.log()}
	calls, err := resolver.Resolve(ctx, ResolveRequest{Text: text, HintProjectID: req.HintProjectID, Actor: req.Actor})
	if err != nil {
		s.log().Warn("smart create resolve failed", zap.String("actor_id", req.Actor.ID), zap.Error(err))
		return CreationResult{}, err
	}
	return s.dispatch(ctx, calls, req.HintProjectID, req.Actor)
}

// Apply validates and dispatches pre-built calls.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (CreationResult, error) {
	if strings.TrimSpace(req.Actor.ID) == "" {
		return CreationResult{}, validationf("actor is required")
	}
	calls, err := DecodeAll(req.Calls)
	if err != nil {
		return CreationResult{}, err
	}
	return s.dispatch(ctx, calls, req.HintProjectID, req.Actor)
}

func (s *Service) dispatch(ctx context.Context, calls []ToolCall, hint string, actor domain.Actor) (CreationResult, error) {
	res, err := Dispatch(ctx, s.Store, calls, hint, actor)
	if err != nil {
		s.log().Warn("smart create dispatch failed", zap.String("actor_id", actor.ID), zap.Int("calls", len(calls)), zap.Error(err))
		return CreationResult{}, err
	}
	s.log().Info("smart create applied",
		zap.String("actor_id", actor.ID),
		zap.Int("projects", len(res.CreatedProjects)),
		zap.Int("tickets", len(res.CreatedTickets)))
	return res, nil
}

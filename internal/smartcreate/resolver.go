package smartcreate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bradboard/internal/domain"
	"bradboard/internal/llm"
)

// DefaultContextProjects bounds how many existing projects are shown to the model.
const DefaultContextProjects = 100

type ResolveRequest struct {
	Text          string
	HintProjectID string
	Actor         domain.Actor
}

// Resolver turns free text into validated tool calls. It reads the store for
// context but never writes.
type Resolver struct {
	LLM             llm.Client
	Store           Store
	ContextProjects int
	Logger          *zap.Logger
}

func (r Resolver) Resolve(ctx context.Context, req ResolveRequest) ([]ToolCall, error) {
	size := r.ContextProjects
	if size <= 0 {
		size = DefaultContextProjects
	}
	projects, _, err := r.Store.ListProjects(ctx, 1, size)
	if err != nil {
		return nil, &Error{Kind: KindStore, Message: "failed to load project context", Err: err}
	}
	system := Instructions(projects, req.Actor, req.HintProjectID)
	raw, err := r.LLM.Complete(ctx, system, req.Text, ListTools())
	if err != nil {
		return nil, upstream(fmt.Sprintf("language model request failed: %v", err), err)
	}
	if r.Logger != nil {
		r.Logger.Debug("model selected tools", zap.Int("calls", len(raw)), zap.Int("context_projects", len(projects)))
	}
	return DecodeAll(raw)
}

// Instructions renders the system prompt: project context, caller identity,
// the hint project and the fixed creation rules.
func Instructions(projects []domain.Project, actor domain.Actor, hintProjectID string) string {
	var b strings.Builder
	b.WriteString("You are a project management assistant. Your job is to analyze user input and create appropriate projects and tickets.\n\n")
	b.WriteString("Available projects:\n")
	if len(projects) == 0 {
		b.WriteString("(none)\n")
	}
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s (ID: %s): %s\n", p.Title, p.ID, p.Description)
	}
	b.WriteString(`
Rules:
1. If a project_id is provided, use it for tickets unless the user explicitly mentions a different project
2. If no suitable project exists, create a new one first
3. Break down complex requests into multiple tickets
4. Set appropriate priorities: 1 (LOW), 2 (MEDIUM), 3 (HIGH)
5. Use descriptive titles and detailed descriptions
6. Default status is "open" unless specified otherwise
7. For a ticket in a project you create in this response, set project_id to that project's exact title

`)
	name := actor.Name
	if name == "" {
		name = actor.ID
	}
	fmt.Fprintf(&b, "Current user: %s (ID: %s)\n", name, actor.ID)
	hint := strings.TrimSpace(hintProjectID)
	if hint == "" {
		hint = "None"
	}
	b.WriteString(llm.HintMarker + hint + "\n\n")
	b.WriteString("Analyze the following text and create the necessary projects and tickets:")
	return b.String()
}

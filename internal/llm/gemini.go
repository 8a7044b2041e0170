package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini implements Client on the Google Gen AI SDK, against either the
// Gemini API or Vertex AI.
type Gemini struct {
	client *genai.Client
	model  string
	Logger *zap.Logger
}

var _ Client = (*Gemini)(nil)

func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	cc := &genai.ClientConfig{}
	switch opts.Provider {
	case "vertex":
		cc.Backend = genai.BackendVertexAI
		cc.Project = opts.Project
		cc.Location = opts.Location
	default:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("%w: api key is required", ErrUnavailable)
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = opts.APIKey
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Gemini{client: client, model: opts.Model, Logger: zap.NewNop()}, nil
}

func (g *Gemini) Complete(ctx context.Context, system, text string, tools []ToolSpec) ([]Call, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: declarations(tools)}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		},
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", ErrUnavailable, err)
	}
	var calls []Call
	for _, fc := range resp.FunctionCalls() {
		args := fc.Args
		if args == nil {
			args = map[string]any{}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode %s arguments: %w", fc.Name, err)
		}
		calls = append(calls, Call{Name: fc.Name, Arguments: raw})
	}
	if g.Logger != nil {
		g.Logger.Debug("gemini completion", zap.String("model", g.model), zap.Int("calls", len(calls)))
	}
	return calls, nil
}

func declarations(tools []ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
		for _, p := range t.Params {
			schema.Properties[p.Name] = paramSchema(p)
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{Name: t.Name, Description: t.Description, Parameters: schema})
	}
	return out
}

// paramSchema maps a Param to a genai schema. Gemini only accepts enum on
// strings, so integer enums become a min/max range.
func paramSchema(p Param) *genai.Schema {
	if p.Type == TypeInteger {
		s := &genai.Schema{Type: genai.TypeInteger, Description: p.Description}
		if len(p.Enum) > 0 {
			lo, hi := intBounds(p.Enum)
			s.Minimum, s.Maximum = &lo, &hi
		}
		return s
	}
	s := &genai.Schema{Type: genai.TypeString, Description: p.Description}
	if len(p.Enum) > 0 {
		s.Format = "enum"
		s.Enum = append([]string(nil), p.Enum...)
	}
	return s
}

func intBounds(values []string) (float64, float64) {
	var lo, hi float64
	seen := false
	for _, v := range values {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		if !seen || n < lo {
			lo = n
		}
		if !seen || n > hi {
			hi = n
		}
		seen = true
	}
	return lo, hi
}

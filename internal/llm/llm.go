// Package llm adapts tool-calling language models to a single Complete call.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnavailable = errors.New("llm unavailable")

type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
)

// Param describes one argument of a tool.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
}

// ToolSpec is a provider-neutral function declaration.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// Call is one function call chosen by the model, arguments left as raw JSON.
type Call struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Client asks a model to pick zero or more tools for the user text.
type Client interface {
	Complete(ctx context.Context, system, text string, tools []ToolSpec) ([]Call, error)
}

// ClientFunc lets a plain function act as a Client.
type ClientFunc func(ctx context.Context, system, text string, tools []ToolSpec) ([]Call, error)

func (f ClientFunc) Complete(ctx context.Context, system, text string, tools []ToolSpec) ([]Call, error) {
	return f(ctx, system, text, tools)
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	Project  string
	Location string
}

// New builds the client named by opts.Provider: gemini, vertex or mock.
func New(ctx context.Context, opts Options) (Client, error) {
	switch opts.Provider {
	case "gemini", "vertex":
		return NewGemini(ctx, opts)
	case "mock", "":
		return Mock{}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

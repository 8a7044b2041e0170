package smartcreate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"bradboard/internal/llm"
)

const (
	ToolCreateProject = "create_project"
	ToolCreateTicket  = "create_ticket"
)

var catalog = []llm.ToolSpec{
	{
		Name:        ToolCreateProject,
		Description: "Create a new project",
		Params: []llm.Param{
			{Name: "title", Type: llm.TypeString, Required: true, Description: "The project title"},
			{Name: "description", Type: llm.TypeString, Required: true, Description: "The project description"},
		},
	},
	{
		Name:        ToolCreateTicket,
		Description: "Create a new ticket",
		Params: []llm.Param{
			{Name: "title", Type: llm.TypeString, Required: true, Description: "The ticket title"},
			{Name: "description", Type: llm.TypeString, Required: true, Description: "The ticket description"},
			{Name: "project_id", Type: llm.TypeString, Description: "The project ID this ticket belongs to, or the exact title of a project created in this response"},
			{Name: "priority", Type: llm.TypeInteger, Enum: []string{"1", "2", "3"}, Description: "Priority level: 1 (LOW), 2 (MEDIUM), 3 (HIGH)"},
			{Name: "status", Type: llm.TypeString, Enum: []string{"open", "in progress", "done"}, Description: "Ticket status"},
			{Name: "assigned_to_id", Type: llm.TypeString, Description: "User ID to assign the ticket to (optional)"},
			{Name: "assigned_to_name", Type: llm.TypeString, Description: "User name to assign the ticket to (optional)"},
		},
	},
}

// ListTools returns the tool catalog in declaration order. The result is a
// copy and safe to modify.
func ListTools() []llm.ToolSpec {
	out := make([]llm.ToolSpec, len(catalog))
	for i, t := range catalog {
		t.Params = slices.Clone(t.Params)
		out[i] = t
	}
	return out
}

// Lookup finds a catalog entry by name.
func Lookup(name string) (llm.ToolSpec, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return llm.ToolSpec{}, false
}

// parseArguments decodes raw call arguments into a JSON object. Anything
// that is not an object is an upstream failure: the model produced garbage.
func parseArguments(tool string, raw json.RawMessage) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, upstream(fmt.Sprintf("unparsable arguments for %s", tool), err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// Validate checks args against the tool's declared parameters. Unknown
// extra fields are ignored; null counts as absent. Integers written with a
// zero fraction, such as 2.0, are rewritten in args to their plain form.
func Validate(spec llm.ToolSpec, args map[string]any) error {
	for _, p := range spec.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return validationf(fmt.Sprintf("%s: missing required field %q", spec.Name, p.Name))
			}
			continue
		}
		var literal string
		switch p.Type {
		case llm.TypeString:
			s, isString := v.(string)
			if !isString {
				return validationf(fmt.Sprintf("%s: field %q must be a string", spec.Name, p.Name))
			}
			if p.Required && strings.TrimSpace(s) == "" {
				return validationf(fmt.Sprintf("%s: field %q must not be empty", spec.Name, p.Name))
			}
			literal = s
		case llm.TypeInteger:
			n, isInt := integer(v)
			if !isInt {
				return validationf(fmt.Sprintf("%s: field %q must be an integer", spec.Name, p.Name))
			}
			literal = strconv.FormatInt(n, 10)
			args[p.Name] = json.Number(literal)
		}
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, literal) {
			return validationf(fmt.Sprintf("%s: field %q must be one of %s, got %s", spec.Name, p.Name, strings.Join(p.Enum, ", "), literal))
		}
	}
	return nil
}

func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return integer(f)
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

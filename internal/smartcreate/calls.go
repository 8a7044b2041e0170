package smartcreate

import (
	"encoding/json"
	"fmt"
	"strings"

	"bradboard/internal/llm"
)

type CreateProjectArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type CreateTicketArgs struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	ProjectID      string `json:"project_id,omitempty"`
	Priority       int    `json:"priority,omitempty"`
	Status         string `json:"status,omitempty"`
	AssignedToID   string `json:"assigned_to_id,omitempty"`
	AssignedToName string `json:"assigned_to_name,omitempty"`
}

// ToolCall is a validated call. Exactly one of the argument fields is set,
// selected by Name.
type ToolCall struct {
	Name    string
	Project *CreateProjectArgs
	Ticket  *CreateTicketArgs
}

// Decode validates a raw model call against the catalog and decodes it into
// its typed arguments.
func Decode(call llm.Call) (ToolCall, error) {
	spec, ok := Lookup(call.Name)
	if !ok {
		return ToolCall{}, validationf(fmt.Sprintf("unknown tool %q", call.Name))
	}
	args, err := parseArguments(call.Name, call.Arguments)
	if err != nil {
		return ToolCall{}, err
	}
	if err := Validate(spec, args); err != nil {
		return ToolCall{}, err
	}
	// args is a validated object, so this round trip cannot fail on shape.
	clean, err := json.Marshal(args)
	if err != nil {
		return ToolCall{}, upstream(fmt.Sprintf("re-encode arguments for %s", call.Name), err)
	}
	out := ToolCall{Name: call.Name}
	switch call.Name {
	case ToolCreateProject:
		out.Project = &CreateProjectArgs{}
		err = json.Unmarshal(clean, out.Project)
	case ToolCreateTicket:
		out.Ticket = &CreateTicketArgs{}
		err = json.Unmarshal(clean, out.Ticket)
		if err == nil {
			err = checkAssignee(out.Ticket)
		}
	}
	if err != nil {
		if _, typed := err.(*Error); typed {
			return ToolCall{}, err
		}
		return ToolCall{}, validationf(fmt.Sprintf("%s: %v", call.Name, err))
	}
	return out, nil
}

// DecodeAll decodes every call, failing on the first invalid one.
func DecodeAll(calls []llm.Call) ([]ToolCall, error) {
	out := make([]ToolCall, 0, len(calls))
	for i, c := range calls {
		tc, err := Decode(c)
		if err != nil {
			if e, ok := err.(*Error); ok {
				e.Message = fmt.Sprintf("call %d: %s", i+1, e.Message)
			}
			return nil, err
		}
		out = append(out, tc)
	}
	return out, nil
}

func checkAssignee(t *CreateTicketArgs) error {
	t.AssignedToID = strings.TrimSpace(t.AssignedToID)
	t.AssignedToName = strings.TrimSpace(t.AssignedToName)
	if (t.AssignedToID == "") != (t.AssignedToName == "") {
		return validationf(fmt.Sprintf("%s: assigned_to_id and assigned_to_name must be set together", ToolCreateTicket))
	}
	return nil
}

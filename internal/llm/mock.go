package llm

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// HintMarker prefixes the hint project line in system instructions. Mock
// reads it back to decide whether a project must be created.
const HintMarker = "Provided project_id: "

// Mock is an offline Client for local development. It turns the text into
// one ticket, plus a project to hold it when no hint project is given.
type Mock struct{}

func (Mock) Complete(ctx context.Context, system, text string, tools []ToolSpec) ([]Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	title := mockTitle(text)
	ticket := map[string]any{"title": title, "description": text}
	if p := mockPriority(text); p != 0 {
		ticket["priority"] = p
	}
	var calls []Call
	if mockHint(system) == "" {
		project := title + " project"
		calls = append(calls, mockCall("create_project", map[string]any{"title": project, "description": text}))
		ticket["project_id"] = project
	}
	return append(calls, mockCall("create_ticket", ticket)), nil
}

func mockCall(name string, args map[string]any) Call {
	raw, _ := json.Marshal(args)
	return Call{Name: name, Arguments: raw}
}

func mockHint(system string) string {
	for _, line := range strings.Split(system, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), HintMarker); ok {
			if v = strings.TrimSpace(v); v != "None" {
				return v
			}
		}
	}
	return ""
}

func mockTitle(text string) string {
	title := text
	if i := strings.IndexAny(title, ".,;\n"); i > 0 {
		title = title[:i]
	}
	if r := []rune(title); len(r) > 60 {
		title = strings.TrimSpace(string(r[:60]))
	}
	r, n := utf8.DecodeRuneInString(title)
	if n == 0 {
		return title
	}
	return string(unicode.ToUpper(r)) + title[n:]
}

func mockPriority(text string) int {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "high priority"), strings.Contains(lower, "urgent"):
		return 3
	case strings.Contains(lower, "low priority"):
		return 1
	}
	return 0
}

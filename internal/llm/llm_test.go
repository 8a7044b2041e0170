package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func decode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestMockCreatesProjectWithoutHint(t *testing.T) {
	calls, err := Mock{}.Complete(context.Background(), HintMarker+"None", "set up the website redesign, high priority", nil)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "create_project", calls[0].Name)
	assert.Equal(t, "create_ticket", calls[1].Name)

	project := decode(t, calls[0].Arguments)
	ticket := decode(t, calls[1].Arguments)
	assert.Equal(t, "Set up the website redesign project", project["title"])
	assert.Equal(t, project["title"], ticket["project_id"])
	assert.EqualValues(t, 3, ticket["priority"])
}

func TestMockUsesHint(t *testing.T) {
	calls, err := Mock{}.Complete(context.Background(), "rules\n"+HintMarker+"p-1\n", "fix the login bug", nil)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	args := decode(t, calls[0].Arguments)
	assert.NotContains(t, args, "project_id")
	assert.NotContains(t, args, "priority")
}

func TestMockCapitalizesMultibyteTitle(t *testing.T) {
	calls, err := Mock{}.Complete(context.Background(), HintMarker+"None", "économiser le budget", nil)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	ticket := decode(t, calls[1].Arguments)
	assert.Equal(t, "Économiser le budget", ticket["title"])
	assert.Equal(t, "Économiser le budget project", decode(t, calls[0].Arguments)["title"])
}

func TestMockEmptyText(t *testing.T) {
	calls, err := Mock{}.Complete(context.Background(), "", "   ", nil)
	require.NoError(t, err)
	assert.Empty(t, calls)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "openai"})
	assert.Error(t, err)
	c, err := New(context.Background(), Options{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, Mock{}, c)
}

func TestDeclarationsMapSchema(t *testing.T) {
	decls := declarations([]ToolSpec{{
		Name:        "create_ticket",
		Description: "Create a new ticket",
		Params: []Param{
			{Name: "title", Type: TypeString, Required: true},
			{Name: "priority", Type: TypeInteger, Enum: []string{"1", "2", "3"}},
			{Name: "status", Type: TypeString, Enum: []string{"open", "done"}},
		},
	}})
	require.Len(t, decls, 1)
	params := decls[0].Parameters
	assert.Equal(t, genai.TypeObject, params.Type)
	assert.Equal(t, []string{"title"}, params.Required)

	prio := params.Properties["priority"]
	assert.Equal(t, genai.TypeInteger, prio.Type)
	require.NotNil(t, prio.Minimum)
	require.NotNil(t, prio.Maximum)
	assert.Equal(t, 1.0, *prio.Minimum)
	assert.Equal(t, 3.0, *prio.Maximum)
	assert.Equal(t, []string{"open", "done"}, params.Properties["status"].Enum)
}

package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bradboard/internal/domain"
)

func TestTicketsCSV(t *testing.T) {
	bob := "Bob"
	tickets := []domain.TicketWithProject{
		{
			Ticket: domain.Ticket{
				ID: "t1", Title: "Fix, login", Description: "line one\nline two", ProjectID: "p1",
				Status: domain.StatusInProgress, Priority: domain.PriorityHigh,
				AssignedToID: &bob, AssignedToName: &bob,
				CreatedByID: "u1", CreatedByName: "Ann", CreatedAt: "c", UpdatedAt: "u",
			},
			ProjectTitle: "Auth",
		},
		{
			Ticket:       domain.Ticket{ID: "t2", Title: "Docs", Description: "d", ProjectID: "gone", Status: domain.StatusOpen, Priority: domain.PriorityLow},
			ProjectTitle: "Unknown",
		},
	}
	var buf bytes.Buffer
	require.NoError(t, TicketsCSV(&buf, tickets))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ticketHeader, rows[0])
	assert.Equal(t, []string{"t1", "Fix, login", "line one\nline two", "Auth", "p1", "in progress", "3", "HIGH", "Bob", "u1", "Ann", "c", "u"}, rows[1])
	assert.Equal(t, "LOW", rows[2][7])
	assert.Equal(t, "", rows[2][8])
}

func TestTicketsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TicketsCSV(&buf, nil))
	assert.Equal(t, "ID,Title,Description,Project,Project ID,Status,Priority,Priority Name,Assigned To,Created By ID,Created By Name,Created At,Updated At\n", buf.String())
}

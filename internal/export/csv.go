// Package export renders tickets for download.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"bradboard/internal/domain"
)

const TicketsFilename = "bradboard_tickets.csv"

var ticketHeader = []string{
	"ID", "Title", "Description", "Project", "Project ID", "Status", "Priority",
	"Priority Name", "Assigned To", "Created By ID", "Created By Name", "Created At", "Updated At",
}

// TicketsCSV writes one header row then one row per ticket.
func TicketsCSV(w io.Writer, tickets []domain.TicketWithProject) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ticketHeader); err != nil {
		return err
	}
	for _, t := range tickets {
		assignee := ""
		if t.AssignedToName != nil {
			assignee = *t.AssignedToName
		}
		row := []string{
			t.ID, t.Title, t.Description, t.ProjectTitle, t.ProjectID, string(t.Status),
			strconv.Itoa(int(t.Priority)), t.Priority.Name(), assignee,
			t.CreatedByID, t.CreatedByName, t.CreatedAt, t.UpdatedAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

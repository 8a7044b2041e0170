package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bradboard/internal/domain"
)

const ticketSelect = `SELECT t.id,t.title,t.description,t.project_id,t.status,t.priority,t.assigned_to_id,t.assigned_to_name,
t.created_by_id,t.created_by_name,t.created_at,t.updated_at,COALESCE(p.title,'Unknown')
FROM tickets t LEFT JOIN projects p ON p.id=t.project_id`

// TicketFilters narrows ticket listings. Empty slices do not filter.
type TicketFilters struct {
	ProjectIDs    []string
	Statuses      []domain.Status
	Priorities    []domain.Priority
	AssignedToIDs []string
	CreatedByIDs  []string
	Search        string
	// Page and Size page the result; Size 0 returns every match.
	Page int
	Size int
}

func scanTicket(row rowScanner) (domain.TicketWithProject, error) {
	var t domain.TicketWithProject
	var assignedID, assignedName sql.NullString
	var status string
	var priority int
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.ProjectID, &status, &priority, &assignedID, &assignedName,
		&t.CreatedByID, &t.CreatedByName, &t.CreatedAt, &t.UpdatedAt, &t.ProjectTitle)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Status = domain.Status(status)
	t.Priority = domain.Priority(priority)
	t.AssignedToID = optionalString(assignedID)
	t.AssignedToName = optionalString(assignedName)
	return t, nil
}

func (r Repo) InsertTicket(ctx context.Context, t domain.Ticket) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO tickets(id,title,description,project_id,status,priority,assigned_to_id,assigned_to_name,created_by_id,created_by_name,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, t.ProjectID, string(t.Status), int(t.Priority),
		nullableStringPtr(t.AssignedToID), nullableStringPtr(t.AssignedToName),
		t.CreatedByID, t.CreatedByName, t.CreatedAt, t.UpdatedAt)
	return err
}

// UpdateTicket writes every mutable column of t.
func (r Repo) UpdateTicket(ctx context.Context, t domain.Ticket) error {
	res, err := r.q().ExecContext(ctx, `UPDATE tickets SET title=?, description=?, project_id=?, status=?, priority=?, assigned_to_id=?, assigned_to_name=?, updated_at=? WHERE id=?`,
		t.Title, t.Description, t.ProjectID, string(t.Status), int(t.Priority),
		nullableStringPtr(t.AssignedToID), nullableStringPtr(t.AssignedToName), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTicket(ctx context.Context, id string) (domain.TicketWithProject, error) {
	return scanTicket(r.q().QueryRowContext(ctx, ticketSelect+` WHERE t.id=?`, id))
}

func (r Repo) DeleteTicket(ctx context.Context, id string) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM tickets WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func ticketWhere(f TicketFilters) (string, []any) {
	var clauses []string
	var args []any
	if len(f.ProjectIDs) > 0 {
		clauses = append(clauses, inClause("t.project_id", len(f.ProjectIDs)))
		for _, v := range f.ProjectIDs {
			args = append(args, v)
		}
	}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, inClause("t.status", len(f.Statuses)))
		for _, v := range f.Statuses {
			args = append(args, string(v))
		}
	}
	if len(f.Priorities) > 0 {
		clauses = append(clauses, inClause("t.priority", len(f.Priorities)))
		for _, v := range f.Priorities {
			args = append(args, int(v))
		}
	}
	if len(f.AssignedToIDs) > 0 {
		clauses = append(clauses, inClause("t.assigned_to_id", len(f.AssignedToIDs)))
		for _, v := range f.AssignedToIDs {
			args = append(args, v)
		}
	}
	if len(f.CreatedByIDs) > 0 {
		clauses = append(clauses, inClause("t.created_by_id", len(f.CreatedByIDs)))
		for _, v := range f.CreatedByIDs {
			args = append(args, v)
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := likePattern(s)
		clauses = append(clauses, `(t.title LIKE ? ESCAPE '\' OR t.description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListTickets returns matching tickets ordered by priority ascending, then
// newest first, along with the unpaged match count.
func (r Repo) ListTickets(ctx context.Context, f TicketFilters) ([]domain.TicketWithProject, int, error) {
	where, args := ticketWhere(f)
	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := ticketSelect + where + ` ORDER BY t.priority ASC, t.created_at DESC, t.rowid DESC`
	if f.Size > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Size, offset(f.Page, f.Size))
	}
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	res := []domain.TicketWithProject{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, t)
	}
	return res, total, rows.Err()
}

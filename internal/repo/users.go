package repo

import (
	"context"
	"database/sql"

	"bradboard/internal/domain"
)

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// UpsertUser records the identity seen on an authenticated request. An
// existing non-empty name is kept so local renames survive re-authentication,
// and a blank email never clears a known one.
func (r Repo) UpsertUser(ctx context.Context, u domain.User, now string) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO users(id,email,name,created_at,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET email=CASE WHEN excluded.email='' THEN users.email ELSE excluded.email END,
  name=CASE WHEN users.name='' THEN excluded.name ELSE users.name END,
  updated_at=excluded.updated_at`, u.ID, u.Email, u.Name, now, now)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q().QueryRowContext(ctx, `SELECT id,email,name FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q().QueryRowContext(ctx, `SELECT id,email,name FROM users WHERE lower(email)=lower(?)`, email))
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id,email,name FROM users ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) UpdateUserName(ctx context.Context, id, name, now string) error {
	res, err := r.q().ExecContext(ctx, `UPDATE users SET name=?, updated_at=? WHERE id=?`, name, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

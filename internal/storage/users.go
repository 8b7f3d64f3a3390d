package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"docmatch/internal/apperrors"
	"docmatch/internal/models"
)

// CreateUser inserts a new user with the given starting balance.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string, credits int) (*models.User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, credits) VALUES (?, ?, ?)`,
		username, passwordHash, credits)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, apperrors.ErrUsernameTaken
		}
		return nil, &apperrors.StorageError{Op: "create user", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &apperrors.StorageError{Op: "create user", Err: err}
	}

	return &models.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Credits:      credits,
		Role:         models.RoleUser,
	}, nil
}

func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password, credits, role FROM users WHERE username = ?`, username))
}

func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password, credits, role FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Credits, &u.Role)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, &apperrors.StorageError{Op: "load user", Err: err}
	}
	return &u, nil
}

// SetRole changes a user's role. There is no HTTP path to this; admin
// accounts are provisioned out of band.
func (s *SQLiteStore) SetRole(ctx context.Context, username, role string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE username = ?`, role, username)
	if err != nil {
		return &apperrors.StorageError{Op: "set role", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &apperrors.StorageError{Op: "set role", Err: err}
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ResetAllCredits restores every user's balance, unconditionally. Run by
// the periodic reset job.
func (s *SQLiteStore) ResetAllCredits(ctx context.Context, amount int) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET credits = ?`, amount); err != nil {
		return &apperrors.StorageError{Op: "reset credits", Err: err}
	}
	return nil
}

// UsageByUser reports per-user credit balance and scan count for analytics.
func (s *SQLiteStore) UsageByUser(ctx context.Context) ([]models.UserUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, credits,
			(SELECT COUNT(*) FROM documents WHERE user_id = users.id) AS scans
		FROM users
		ORDER BY id`)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "usage report", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var usage []models.UserUsage
	for rows.Next() {
		var u models.UserUsage
		if err := rows.Scan(&u.Username, &u.Credits, &u.Scans); err != nil {
			return nil, &apperrors.StorageError{Op: "usage report", Err: err}
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StorageError{Op: "usage report", Err: err}
	}

	return usage, nil
}

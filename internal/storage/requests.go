package storage

import (
	"context"
	"database/sql"

	"docmatch/internal/apperrors"
	"docmatch/internal/models"
)

// CreateCreditRequest records a pending top-up request.
func (s *SQLiteStore) CreateCreditRequest(ctx context.Context, userID int64, amount int) (*models.CreditRequest, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO credit_requests (user_id, requested_credits) VALUES (?, ?)`,
		userID, amount)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "create credit request", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &apperrors.StorageError{Op: "create credit request", Err: err}
	}

	return &models.CreditRequest{
		ID:               id,
		UserID:           userID,
		RequestedCredits: amount,
		Status:           models.StatusPending,
	}, nil
}

// PendingRequests lists all pending requests joined with the requester's
// username, oldest first.
func (s *SQLiteStore) PendingRequests(ctx context.Context) ([]models.PendingRequestResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cr.user_id, u.username, cr.requested_credits
		FROM credit_requests cr
		JOIN users u ON cr.user_id = u.id
		WHERE cr.status = 'pending'
		ORDER BY cr.id`)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "list pending requests", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var pending []models.PendingRequestResponse
	for rows.Next() {
		var p models.PendingRequestResponse
		if err := rows.Scan(&p.UserID, &p.Username, &p.RequestedCredits); err != nil {
			return nil, &apperrors.StorageError{Op: "list pending requests", Err: err}
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StorageError{Op: "list pending requests", Err: err}
	}

	return pending, nil
}

// ApproveLatestPending resolves the user's most recent pending request: the
// requested amount is added to the balance and exactly that request moves to
// approved. Older pending requests stay pending. Returns the amount granted,
// or ErrNotFound when the user has no pending request.
func (s *SQLiteStore) ApproveLatestPending(ctx context.Context, userID int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &apperrors.StorageError{Op: "approve request", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var requestID int64
	var amount int
	err = tx.QueryRowContext(ctx, `
		SELECT id, requested_credits FROM credit_requests
		WHERE user_id = ? AND status = 'pending'
		ORDER BY id DESC LIMIT 1`, userID).
		Scan(&requestID, &amount)
	if err == sql.ErrNoRows {
		return 0, apperrors.ErrNotFound
	}
	if err != nil {
		return 0, &apperrors.StorageError{Op: "approve request", Err: err}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET credits = credits + ? WHERE id = ?`, amount, userID); err != nil {
		return 0, &apperrors.StorageError{Op: "approve request", Err: err}
	}

	// Resolve only the selected request, by id. Matching on user+status here
	// would silently approve every pending request for the user.
	if _, err := tx.ExecContext(ctx,
		`UPDATE credit_requests SET status = 'approved' WHERE id = ?`, requestID); err != nil {
		return 0, &apperrors.StorageError{Op: "approve request", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &apperrors.StorageError{Op: "approve request", Err: err}
	}

	return amount, nil
}

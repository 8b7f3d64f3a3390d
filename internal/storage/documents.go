package storage

import (
	"context"
	"database/sql"
	"time"

	"docmatch/internal/apperrors"
	"docmatch/internal/models"
)

// InsertDocument persists a document and its embedding, consuming exactly
// one credit. The decrement is conditional (credits > 0) and shares a
// transaction with the insert, so a concurrent caller racing the last
// credit is rejected instead of driving the balance negative.
func (s *SQLiteStore) InsertDocument(ctx context.Context, userID int64, filename, content string, embedding []float32) (*models.Document, error) {
	if err := s.ensureVecTableExists(len(embedding)); err != nil {
		return nil, &apperrors.StorageError{Op: "insert document", Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "insert document", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET credits = credits - 1 WHERE id = ? AND credits > 0`, userID)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "consume credit", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, &apperrors.StorageError{Op: "consume credit", Err: err}
	}
	if affected == 0 {
		return nil, apperrors.ErrInsufficientCredits
	}

	now := time.Now().UTC()
	res, err = tx.ExecContext(ctx,
		`INSERT INTO documents (user_id, filename, content, created_at) VALUES (?, ?, ?, ?)`,
		userID, filename, content, now)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "insert document", Err: err}
	}

	docID, err := res.LastInsertId()
	if err != nil {
		return nil, &apperrors.StorageError{Op: "insert document", Err: err}
	}

	embeddingBytes := serializeFloat32Vector(embedding)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_documents (doc_id, embedding) VALUES (?, ?)`,
		docID, embeddingBytes); err != nil {
		return nil, &apperrors.StorageError{Op: "insert vector", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &apperrors.StorageError{Op: "insert document", Err: err}
	}

	return &models.Document{
		ID:        docID,
		UserID:    userID,
		Filename:  filename,
		Content:   content,
		Embedding: embedding,
		CreatedAt: now,
	}, nil
}

// DocumentByID loads a document together with its embedding.
func (s *SQLiteStore) DocumentByID(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT d.id, d.user_id, d.filename, d.content, d.created_at, v.embedding
		FROM documents d
		JOIN vec_documents v ON v.doc_id = d.id
		WHERE d.id = ?`, id).
		Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.Content, &doc.CreatedAt, &blob)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, &apperrors.StorageError{Op: "load document", Err: err}
	}

	doc.Embedding = deserializeFloat32Vector(blob)
	return &doc, nil
}

// CandidatesExcluding returns every stored document except the given one,
// with embeddings, in insertion order. Content is not fetched; ranking only
// needs id, filename and vector.
func (s *SQLiteStore) CandidatesExcluding(ctx context.Context, id int64) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.filename, v.embedding
		FROM documents d
		JOIN vec_documents v ON v.doc_id = d.id
		WHERE d.id != ?
		ORDER BY d.id`, id)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "load candidates", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.Filename, &blob); err != nil {
			return nil, &apperrors.StorageError{Op: "load candidates", Err: err}
		}
		doc.Embedding = deserializeFloat32Vector(blob)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperrors.StorageError{Op: "load candidates", Err: err}
	}

	return docs, nil
}

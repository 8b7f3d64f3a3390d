// Package storage persists users, documents, embeddings and credit requests
// in SQLite. Embedding vectors live in a sqlite-vec vec0 virtual table whose
// fixed FLOAT[n] column pins the corpus dimensionality.
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3" // Import sqlite3 driver

	"docmatch/internal/models"
)

func init() {
	sqlite_vec.Auto()
}

// Store is the persistence boundary used by the API layer.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string, credits int) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	ResetAllCredits(ctx context.Context, amount int) error

	CreateCreditRequest(ctx context.Context, userID int64, amount int) (*models.CreditRequest, error)
	PendingRequests(ctx context.Context) ([]models.PendingRequestResponse, error)
	ApproveLatestPending(ctx context.Context, userID int64) (int, error)

	InsertDocument(ctx context.Context, userID int64, filename, content string, embedding []float32) (*models.Document, error)
	DocumentByID(ctx context.Context, id int64) (*models.Document, error)
	CandidatesExcluding(ctx context.Context, id int64) ([]models.Document, error)

	UsageByUser(ctx context.Context) ([]models.UserUsage, error)
}

// SQLiteStore implements Store on a single SQLite database.
type SQLiteStore struct {
	db *sql.DB

	mu              sync.Mutex
	embeddingLength int // 0 until the first vector is stored
}

// NewSQLiteStore opens (or creates) the database and its schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initDB(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		credits INTEGER NOT NULL DEFAULT 20,
		role TEXT NOT NULL DEFAULT 'user'
	);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS credit_requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		requested_credits INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	// vec_documents is created on first insert, when the embedding
	// dimension is known.
	return s.loadEmbeddingLength()
}

// loadEmbeddingLength recovers the corpus dimension from an existing vector,
// if any, so reopened stores keep rejecting mismatched embeddings.
func (s *SQLiteStore) loadEmbeddingLength() error {
	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='vec_documents'").Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check vec_documents existence: %w", err)
	}
	if exists == 0 {
		return nil
	}

	var blob []byte
	err = s.db.QueryRow("SELECT embedding FROM vec_documents LIMIT 1").Scan(&blob)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stored embedding: %w", err)
	}

	s.embeddingLength = len(blob) / 4
	return nil
}

// ensureVecTableExists creates the vec_documents table on first use, fixing
// the embedding dimension for the lifetime of the corpus. Concurrent first
// inserts race on table creation, so the whole check-then-create runs under
// the mutex.
func (s *SQLiteStore) ensureVecTableExists(embeddingLen int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingLength != 0 {
		if s.embeddingLength != embeddingLen {
			return fmt.Errorf("embedding dimension %d does not match corpus dimension %d", embeddingLen, s.embeddingLength)
		}
		return nil
	}

	vecQuery := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_documents USING vec0(
			doc_id INTEGER PRIMARY KEY,
			embedding FLOAT[%d]
		)
	`, embeddingLen)

	if _, err := s.db.Exec(vecQuery); err != nil {
		return fmt.Errorf("failed to create vec_documents table: %w", err)
	}

	s.embeddingLength = embeddingLen
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// serializeFloat32Vector converts a float32 slice to the byte format expected by sqlite-vec
func serializeFloat32Vector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
	return buf
}

// deserializeFloat32Vector converts a sqlite-vec blob back to a float32 slice
func deserializeFloat32Vector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4]))
	}
	return vec
}

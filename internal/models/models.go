// Package models defines the data model and the typed request/response
// contracts for the HTTP API.
package models

import "time"

// Roles assignable to a user.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Credit request statuses. A request moves pending -> approved exactly once.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Credits      int    `json:"credits"`
	Role         string `json:"role"`
}

// Document is immutable after creation and never deleted.
type Document struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreditRequest struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"userId"`
	RequestedCredits int    `json:"requestedCredits"`
	Status           string `json:"status"`
}

// Match is derived from a similarity scan; it is never persisted.
type Match struct {
	ID         int64   `json:"id"`
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
}

// UserUsage is one row of the admin analytics report.
type UserUsage struct {
	Username string `json:"username"`
	Credits  int    `json:"credits"`
	Scans    int    `json:"scans"`
}

// Request payloads

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreditRequestInput struct {
	UserID           int64 `json:"userId"`
	RequestedCredits int   `json:"requestedCredits"`
}

type CreditApprovalRequest struct {
	UserID  int64 `json:"userId"`
	AdminID int64 `json:"adminId"`
}

// Response payloads

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Credits  int    `json:"credits"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

type ProfileResponse struct {
	Username string `json:"username"`
	Credits  int    `json:"credits"`
}

type PendingRequestResponse struct {
	UserID           int64  `json:"userId"`
	Username         string `json:"username"`
	RequestedCredits int    `json:"requestedCredits"`
}

type ScanResponse struct {
	DocID    int64  `json:"docId"`
	Filename string `json:"filename"`
}

type AnalyticsResponse struct {
	Users []UserUsage `json:"users"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

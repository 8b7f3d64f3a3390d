// Package apperrors defines the failure taxonomy shared by all layers and
// its mapping onto HTTP errors.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ory/herodot"
)

var (
	// ErrInvalidCredentials covers unknown usernames and bad passwords alike,
	// so login failures do not leak which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken is returned when registering an already-used username.
	ErrUsernameTaken = errors.New("username taken")

	// ErrAdminRequired is returned when a non-admin principal calls an
	// admin-only operation.
	ErrAdminRequired = errors.New("admins only")

	// ErrNotFound covers missing users, documents and pending requests.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientCredits rejects ingestion when the balance is exhausted.
	ErrInsufficientCredits = errors.New("no credits left")
)

// ProviderError wraps a failure of the embedding provider: upstream error,
// timeout, or malformed output.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

var errBadGateway = herodot.DefaultError{
	CodeField:   http.StatusBadGateway,
	StatusField: http.StatusText(http.StatusBadGateway),
	ErrorField:  "The upstream service failed to process the request",
}

// ToHTTP maps a taxonomy error onto the herodot error the request boundary
// should write. Unrecognized errors map to an internal server error.
func ToHTTP(err error) *herodot.DefaultError {
	var provErr *ProviderError
	var storeErr *StorageError

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return herodot.ErrUnauthorized.WithReason("Invalid credentials")
	case errors.Is(err, ErrUsernameTaken):
		return herodot.ErrBadRequest.WithReason("Username taken")
	case errors.Is(err, ErrAdminRequired):
		return herodot.ErrForbidden.WithReason("Admins only")
	case errors.Is(err, ErrNotFound):
		return herodot.ErrNotFound.WithReason("Resource not found")
	case errors.Is(err, ErrInsufficientCredits):
		return herodot.ErrForbidden.WithReason("No credits left")
	case errors.As(err, &provErr):
		return errBadGateway.WithReason("Failed to compute embedding")
	case errors.As(err, &storeErr):
		return herodot.ErrInternalServerError.WithReason("Storage operation failed")
	default:
		return herodot.ErrInternalServerError.WithReason("An internal error occurred")
	}
}

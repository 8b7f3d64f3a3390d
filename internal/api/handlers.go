package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ory/herodot"

	"docmatch/internal/apperrors"
	"docmatch/internal/auth"
	"docmatch/internal/models"
	"docmatch/internal/similarity"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Username and password are required"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.store.CreateUser(r.Context(), req.Username, hash, s.initialCredits); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writer.Write(w, r, &models.MessageResponse{Message: "User registered"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}

	user, err := s.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = apperrors.ErrInvalidCredentials
		}
		s.writeError(w, r, err)
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		s.writeError(w, r, apperrors.ErrInvalidCredentials)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writer.Write(w, r, &models.LoginResponse{
		ID:       user.ID,
		Username: user.Username,
		Credits:  user.Credits,
		Role:     user.Role,
		Token:    token,
	})
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid user id"))
		return
	}

	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writer.Write(w, r, &models.ProfileResponse{
		Username: user.Username,
		Credits:  user.Credits,
	})
}

func (s *Server) requestCredits(w http.ResponseWriter, r *http.Request) {
	var req models.CreditRequestInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}
	if req.RequestedCredits <= 0 {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Requested credits must be positive"))
		return
	}

	if _, err := s.store.UserByID(r.Context(), req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.store.CreateCreditRequest(r.Context(), req.UserID, req.RequestedCredits); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writer.Write(w, r, &models.MessageResponse{Message: "Credit request submitted"})
}

// pendingRequests is wrapped in the admin middleware: the caller holds a
// valid token with the admin role by the time this runs.
func (s *Server) pendingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.PendingRequests(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if pending == nil {
		pending = []models.PendingRequestResponse{}
	}
	s.writer.Write(w, r, pending)
}

func (s *Server) approveCredits(w http.ResponseWriter, r *http.Request) {
	var req models.CreditApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid request body"))
		return
	}

	admin, err := s.store.UserByID(r.Context(), req.AdminID)
	if err != nil {
		// An unknown admin id is an authorization failure; anything else
		// is a storage failure and must surface as one.
		if errors.Is(err, apperrors.ErrNotFound) {
			err = apperrors.ErrAdminRequired
		}
		s.writeError(w, r, err)
		return
	}
	if admin.Role != models.RoleAdmin {
		s.writeError(w, r, apperrors.ErrAdminRequired)
		return
	}

	granted, err := s.store.ApproveLatestPending(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writer.Write(w, r, &models.MessageResponse{
		Message: fmt.Sprintf("Added %d credits to user %d", granted, req.UserID),
	})
}

const maxUploadBytes = 10 << 20

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid multipart form"))
		return
	}

	userID, err := strconv.ParseInt(r.FormValue("userId"), 10, 64)
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid user id"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Missing file field"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Failed to read file"))
		return
	}

	// Pre-check the balance before the embedding call: provider calls are
	// the expensive part of ingestion and an exhausted user must not
	// trigger one. The authoritative decrement happens atomically inside
	// InsertDocument.
	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if user.Credits <= 0 {
		s.writeError(w, r, apperrors.ErrInsufficientCredits)
		return
	}

	embedding, err := s.embedder.Embed(r.Context(), string(content))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.store.InsertDocument(r.Context(), userID, header.Filename, string(content), embedding)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writer.Write(w, r, &models.ScanResponse{
		DocID:    doc.ID,
		Filename: doc.Filename,
	})
}

func (s *Server) matches(w http.ResponseWriter, r *http.Request) {
	docID, err := strconv.ParseInt(r.PathValue("docId"), 10, 64)
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid document id"))
		return
	}

	target, err := s.store.DocumentByID(r.Context(), docID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	docs, err := s.store.CandidatesExcluding(r.Context(), docID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	candidates := make([]similarity.Candidate, 0, len(docs))
	filenames := make(map[int64]string, len(docs))
	for _, d := range docs {
		candidates = append(candidates, similarity.Candidate{ID: d.ID, Vector: d.Embedding})
		filenames[d.ID] = d.Filename
	}

	ranked := similarity.Rank(target.Embedding, candidates, s.threshold)

	matches := make([]models.Match, 0, len(ranked))
	for _, m := range ranked {
		matches = append(matches, models.Match{
			ID:         m.ID,
			Filename:   filenames[m.ID],
			Similarity: m.Score,
		})
	}

	s.writer.Write(w, r, matches)
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		s.writer.WriteError(w, r, herodot.ErrBadRequest.WithReason("Invalid user id"))
		return
	}

	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = apperrors.ErrAdminRequired
		}
		s.writeError(w, r, err)
		return
	}
	if user.Role != models.RoleAdmin {
		s.writeError(w, r, apperrors.ErrAdminRequired)
		return
	}

	usage, err := s.store.UsageByUser(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if usage == nil {
		usage = []models.UserUsage{}
	}
	s.writer.Write(w, r, &models.AnalyticsResponse{Users: usage})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.writer.Write(w, r, &models.HealthResponse{Status: "healthy"})
}

func queryID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
}

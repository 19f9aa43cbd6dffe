package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/fjod/storefront/internal/session"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Sessions resolves and stores shopper sessions.
type Sessions interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	Persist(ctx context.Context, s *session.Session) error
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// loadSession returns the caller's session or writes an error response.
func loadSession(w http.ResponseWriter, r *http.Request, sessions Sessions) (*session.Session, bool) {
	id := getSessionID(r.Context())
	if id == "" {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return nil, false
	}

	s, err := sessions.Get(r.Context(), id)
	if err != nil {
		log.Printf("failed to load session %s (request %s): %v", id, getRequestID(r.Context()), err)
		respondError(w, http.StatusServiceUnavailable, "session_unavailable", "session storage unavailable")
		return nil, false
	}
	return s, true
}

// persist saves the session after a change. Storage trouble is logged, the
// in-memory session stays authoritative.
func persist(r *http.Request, sessions Sessions, s *session.Session) {
	if err := sessions.Persist(r.Context(), s); err != nil {
		log.Printf("failed to persist session %s (request %s): %v", s.ID, getRequestID(r.Context()), err)
	}
}

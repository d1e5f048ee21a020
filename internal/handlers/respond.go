// internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tanglesocial/tangle/internal/friendship"
)

// respondJSON writes the payload as a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps the relationship engine's typed errors to HTTP
// statuses. This is the only place the mapping lives.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, friendship.ErrSelfRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, friendship.ErrUserNotFound),
		errors.Is(err, friendship.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, friendship.ErrRequestAlreadyPending),
		errors.Is(err, friendship.ErrAlreadyFriends),
		errors.Is(err, friendship.ErrDuplicateRelationship),
		errors.Is(err, friendship.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, friendship.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// internal/handlers/notifications.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/tanglesocial/tangle/internal/auth"
	"github.com/tanglesocial/tangle/internal/database"
)

// NotificationHandler lists and acknowledges persisted notifications.
type NotificationHandler struct {
	Store *database.NotificationStore
}

// List handles GET /notifications?limit=.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	notifications, err := h.Store.ListForUser(r.Context(), userID, queryInt(r, "limit", 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// MarkRead handles POST /notifications/read with payload {"ids": ["<uuid>", ...]}.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid notification id")
			return
		}
		ids = append(ids, id)
	}

	if err := h.Store.MarkRead(r.Context(), userID, ids); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": len(ids)})
}

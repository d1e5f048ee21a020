// internal/handlers/friends.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tanglesocial/tangle/internal/auth"
	"github.com/tanglesocial/tangle/internal/friendship"
	"github.com/tanglesocial/tangle/internal/models"
	"github.com/tanglesocial/tangle/internal/notify"
)

const defaultSuggestionLimit = 10

// NotificationWriter persists notification rows. The handler treats it as
// best-effort: persistence failures are logged, not surfaced.
type NotificationWriter interface {
	Create(ctx context.Context, n *models.Notification) error
}

// FriendHandler adapts HTTP requests onto the relationship engine. It holds
// no transition logic of its own.
type FriendHandler struct {
	Engine        *friendship.Engine
	Suggester     *friendship.Suggester
	Notifications NotificationWriter
	Hub           *notify.Hub
	Log           *logrus.Logger
}

// Request handles POST /friends/request with payload {"user_id": "<uuid>"}.
func (h *FriendHandler) Request(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	targetID, ok := h.decodeUserID(w, r)
	if !ok {
		return
	}

	result, err := h.Engine.RequestFriendship(r.Context(), actorID, targetID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	h.notifyUser(r.Context(), targetID, actorID, models.NotificationFriendRequest, map[string]any{
		"relationshipId": result.ID.String(),
	})
	respondJSON(w, http.StatusCreated, result)
}

// Accept handles POST /friends/accept with payload {"relationship_id": "<uuid>"}.
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	relID, ok := h.decodeRelationshipID(w, r)
	if !ok {
		return
	}

	result, err := h.Engine.AcceptFriendship(r.Context(), actorID, relID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	h.notifyUser(r.Context(), result.RequesterID, actorID, models.NotificationFriendAccepted, map[string]any{
		"relationshipId": result.ID.String(),
	})
	respondJSON(w, http.StatusOK, result)
}

// Decline handles POST /friends/decline with payload {"relationship_id": "<uuid>"}.
// The request is deleted outright; the requester may retry immediately.
func (h *FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	relID, ok := h.decodeRelationshipID(w, r)
	if !ok {
		return
	}

	if err := h.Engine.DeclineFriendship(r.Context(), actorID, relID); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

// Remove handles POST /friends/remove with payload {"user_id": "<uuid>"}.
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	otherID, ok := h.decodeUserID(w, r)
	if !ok {
		return
	}

	if err := h.Engine.RemoveFriendship(r.Context(), actorID, otherID); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// List handles GET /friends?page=&pageSize=.
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", friendship.DefaultPageSize)

	entries, err := h.Engine.ListFriends(r.Context(), userID, page, pageSize)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Requests handles GET /friends/requests.
func (h *FriendHandler) Requests(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	requests, err := h.Engine.ListIncomingRequests(r.Context(), userID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

// Suggestions handles GET /friends/suggestions?limit=.
func (h *FriendHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", defaultSuggestionLimit)
	if limit > friendship.MaxPageSize {
		limit = friendship.MaxPageSize
	}

	suggestions, err := h.Suggester.Suggest(r.Context(), userID, limit)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, suggestions)
}

func (h *FriendHandler) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *FriendHandler) decodeUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user_id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *FriendHandler) decodeRelationshipID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req struct {
		RelationshipID string `json:"relationship_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.RelationshipID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid relationship_id")
		return uuid.Nil, false
	}
	return id, true
}

// notifyUser persists a notification row and pushes it over the hub.
// Both are best-effort enrichments of an already-committed operation.
func (h *FriendHandler) notifyUser(ctx context.Context, recipientID, actorID uuid.UUID, kind string, payload map[string]any) {
	if h.Notifications != nil {
		n := &models.Notification{
			RecipientID: recipientID,
			ActorID:     actorID,
			Kind:        kind,
			Payload:     payload,
		}
		if err := h.Notifications.Create(ctx, n); err != nil && h.Log != nil {
			h.Log.WithError(err).WithField("kind", kind).Warn("persist notification failed")
		}
	}
	if h.Hub != nil {
		h.Hub.Publish(recipientID, notify.Event{Kind: kind, ActorID: actorID, Payload: payload})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// internal/handlers/posts.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tanglesocial/tangle/internal/auth"
	"github.com/tanglesocial/tangle/internal/database"
	"github.com/tanglesocial/tangle/internal/models"
	"github.com/tanglesocial/tangle/internal/notify"
)

// PostHandler exposes post and comment CRUD. All of it is pass-through
// persistence; the interesting graph logic lives in the friendship engine.
type PostHandler struct {
	Posts         *database.PostStore
	Notifications NotificationWriter
	Hub           *notify.Hub
	Log           *logrus.Logger
}

// Create handles POST /posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		Body     string `json:"body"`
		ImageURL string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Body) == "" && req.ImageURL == "" {
		respondError(w, http.StatusBadRequest, "post body or image required")
		return
	}

	post := models.Post{AuthorID: userID, Body: req.Body, ImageURL: req.ImageURL}
	if err := h.Posts.CreatePost(r.Context(), &post); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

// Feed handles GET /posts/feed?limit=.
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	posts, err := h.Posts.ListFeed(r.Context(), userID, queryInt(r, "limit", 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load feed")
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// Comment handles POST /posts/{id}/comments.
func (h *PostHandler) Comment(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	postID, ok := postIDFromPath(w, r)
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		respondError(w, http.StatusBadRequest, "comment body required")
		return
	}

	post, err := h.Posts.GetPost(r.Context(), postID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "post not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load post")
		return
	}

	comment := models.Comment{PostID: postID, AuthorID: userID, Body: req.Body}
	if err := h.Posts.CreateComment(r.Context(), &comment); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}

	if post.AuthorID != userID {
		payload := map[string]any{"postId": postID.String(), "commentId": comment.ID.String()}
		if h.Notifications != nil {
			n := &models.Notification{
				RecipientID: post.AuthorID,
				ActorID:     userID,
				Kind:        models.NotificationComment,
				Payload:     payload,
			}
			if err := h.Notifications.Create(r.Context(), n); err != nil && h.Log != nil {
				h.Log.WithError(err).Warn("persist comment notification failed")
			}
		}
		if h.Hub != nil {
			h.Hub.Publish(post.AuthorID, notify.Event{Kind: models.NotificationComment, ActorID: userID, Payload: payload})
		}
	}

	respondJSON(w, http.StatusCreated, comment)
}

// Comments handles GET /posts/{id}/comments.
func (h *PostHandler) Comments(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.UserFromRequest(r); err != nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	postID, ok := postIDFromPath(w, r)
	if !ok {
		return
	}

	comments, err := h.Posts.ListComments(r.Context(), postID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load comments")
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

// postIDFromPath parses the {id} segment of /posts/{id}/comments.
func postIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "posts" {
		respondError(w, http.StatusBadRequest, "missing post id")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid post id")
		return uuid.Nil, false
	}
	return id, true
}

// internal/handlers/users.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tanglesocial/tangle/internal/auth"
	"github.com/tanglesocial/tangle/internal/database"
	"github.com/tanglesocial/tangle/internal/models"
)

// UserHandler exposes account creation and login.
type UserHandler struct {
	Users *database.UserStore
}

// Create handles POST /users/create.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email          string `json:"email"`
		Password       string `json:"password"`
		Username       string `json:"username"`
		ProfilePicture string `json:"profilePicture"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		respondError(w, http.StatusBadRequest, "email, password and username are required")
		return
	}

	user := models.User{
		Email:          req.Email,
		Password:       req.Password,
		Username:       req.Username,
		ProfilePicture: req.ProfilePicture,
	}
	if err := h.Users.Create(r.Context(), &user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			respondError(w, http.StatusConflict, "email or username already taken")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusCreated, user)
}

// Login handles POST /users/login, setting the session cookie on success.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	token, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusForbidden, "invalid credentials")
		return
	}

	auth.SetSessionCookie(w, token)
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, user)
}

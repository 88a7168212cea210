package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// CreateUserRequest is the registration body
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenResponse carries a new session token
type TokenResponse struct {
	Token string `json:"token"`
}

func toUserResponse(u *simplefiles.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Email: u.Email}
}

// CreateUser registers a new account
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, err := h.service.Register(r.Context(), simplefiles.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toUserResponse(user))
}

// GetMe returns the authenticated user
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, toUserResponse(user))
}

// Connect exchanges Basic credentials for a session token
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		writeMessage(w, r, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	token, err := h.service.Login(r.Context(), email, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, TokenResponse{Token: token})
}

// Disconnect ends the current session
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(TokenKey).(string)
	if err := h.service.Logout(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

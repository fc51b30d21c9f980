package handlers

import (
	"net/http"

	"github.com/tidecartapp/tidecart/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Login exchanges credentials for a bearer token. Accounts are created
// during the checkout contact step; this endpoint is for returning
// customers checking on their orders.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Email == "" || req.Password == "" {
		h.respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	user, token, err := h.registration.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.loggerFromContext(ctx).Info("login rejected", "error", err)
		h.respondJSON(ctx, w, http.StatusUnauthorized, errorResponse{Error: "invalid email or password"})
		return
	}

	h.respondJSON(ctx, w, http.StatusOK, loginResponse{User: user, Token: token})
}

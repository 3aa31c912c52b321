package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"jotter/internal/middleware"
	"jotter/internal/services"
)

type Authenticator interface {
	SignUp(ctx context.Context, email, password, displayName string) (services.AuthResult, error)
	Login(ctx context.Context, email, password string) (services.AuthResult, error)
	Logout(ctx context.Context, c *services.Claims) error
}

type AuthHandler struct {
	auth Authenticator
	log  *zap.Logger
}

func NewAuthHandler(auth Authenticator, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// Signup godoc
// @Summary Register an account
// @Description Creates the account and its profile and returns a session token.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body signupRequest true "Email, password and display name"
// @Success 201 {object} AuthResponse
// @Failure 400 {string} string "Bad request"
// @Failure 409 {string} string "Email already registered"
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	res, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if res.User == nil {
		h.log.Warn("signup left account without profile")
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Token: res.Token, Profile: res.User})
}

// Login godoc
// @Summary Sign in
// @Description Returns a session token. profile is null when the account has none yet.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body credentials true "Email and password"
// @Success 200 {object} AuthResponse
// @Failure 401 {string} string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, &c); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	res, err := h.auth.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Token: res.Token, Profile: res.User})
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.ClaimsFrom(r.Context())); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

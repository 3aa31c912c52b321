package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"jotter/internal/middleware"
	"jotter/internal/models"
)

type Profiles interface {
	Me(ctx context.Context, userID string) (*models.User, error)
	SaveProfile(ctx context.Context, userID, displayName string) (*models.User, error)
}

type UserHandler struct {
	profiles Profiles
	log      *zap.Logger
}

func NewUserHandler(profiles Profiles, log *zap.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, log: log}
}

// GetMe godoc
// @Summary Current user
// @Description Returns the signed-in user's profile. 404 means the account has no profile.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {string} string "Session expired"
// @Failure 404 {string} string "Profile not found"
// @Router /auth/me [get]
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.profiles.Me(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// SaveProfile godoc
// @Summary Create or update profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body profileRequest true "Display name"
// @Success 200 {object} models.User
// @Failure 400 {string} string "Bad request"
// @Router /profile [put]
func (h *UserHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	u, err := h.profiles.SaveProfile(r.Context(), middleware.UserID(r.Context()), req.DisplayName)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"jotter/internal/middleware"
	"jotter/internal/models"
)

type Stats interface {
	Stats(ctx context.Context, userID string, loc *time.Location) (models.DashboardStats, error)
}

type DashboardHandler struct {
	svc Stats
	log *zap.Logger
}

func NewDashboardHandler(svc Stats, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, log: log}
}

// Get godoc
// @Summary Writing statistics
// @Description Streaks and counts for the dashboard. Accepts tz (IANA zone) to decide what "today" is; defaults to UTC.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param tz query string false "IANA time zone, e.g. Europe/Berlin"
// @Success 200 {object} models.DashboardStats
// @Failure 400 {string} string "Bad request"
// @Router /stats [get]
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			http.Error(w, "invalid tz", http.StatusBadRequest)
			return
		}
	}
	stats, err := h.svc.Stats(r.Context(), middleware.UserID(r.Context()), loc)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

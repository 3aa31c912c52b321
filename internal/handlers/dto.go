package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"jotter/internal/models"
	"jotter/internal/services"
)

// AuthResponse is returned by signup and login. Profile is null when the
// account has no profile yet.
type AuthResponse struct {
	Token   string       `json:"token"`
	Profile *models.User `json:"profile"`
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
}

type trashRequest struct {
	DeletedAt string `json:"deleted_at"` // RFC 3339, optional
}

func toRecords(entries []models.Entry) []models.EntryRecord {
	out := make([]models.EntryRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record())
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

var badRequest = []error{
	models.ErrJournalNameEmpty,
	models.ErrJournalNameTooLong,
	models.ErrJournalNameCharset,
	models.ErrInvalidColor,
	models.ErrInvalidIcon,
	models.ErrEmptyContent,
	models.ErrFutureDate,
	models.ErrInvalidDate,
	services.ErrEmailRequired,
	services.ErrWeakPassword,
	services.ErrDisplayNameRequired,
	services.ErrDisplayNameTooLong,
}

var conflict = []error{
	services.ErrEmailTaken,
	services.ErrEntryTrashed,
	services.ErrEntryNotTrashed,
	models.ErrIllegalTransition,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeError maps service errors to status codes. Anything unrecognised is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case isAny(err, badRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case isAny(err, conflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, services.ErrProfileNotFound):
		http.Error(w, "profile not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		log.Error("request failed", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

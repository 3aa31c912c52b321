package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"jotter/internal/dates"
	"jotter/internal/gateway"
	"jotter/internal/middleware"
	"jotter/internal/models"
)

type Journals interface {
	ListJournals(ctx context.Context, userID string) ([]models.Journal, error)
	CreateJournal(ctx context.Context, userID string, in gateway.NewJournal) (models.Journal, error)
	UpdateJournal(ctx context.Context, userID, id string, p gateway.JournalPatch) (models.Journal, error)
	DeleteJournal(ctx context.Context, userID, id string) error

	ListEntries(ctx context.Context, userID string) ([]models.Entry, error)
	CreateEntry(ctx context.Context, userID string, in gateway.NewEntry) (models.Entry, error)
	UpdateEntry(ctx context.Context, userID, id string, p gateway.EntryPatch) (models.Entry, error)
	TrashEntry(ctx context.Context, userID, id string, at time.Time) (models.Entry, error)
	RecoverEntry(ctx context.Context, userID, id string) (models.Entry, error)
	PurgeEntry(ctx context.Context, userID, id string) error
}

type JournalHandler struct {
	svc Journals
	log *zap.Logger
}

func NewJournalHandler(svc Journals, log *zap.Logger) *JournalHandler {
	return &JournalHandler{svc: svc, log: log}
}

// ListJournals godoc
// @Summary List journals
// @Tags journals
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Journal
// @Router /journals [get]
func (h *JournalHandler) ListJournals(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListJournals(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if out == nil {
		out = []models.Journal{}
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateJournal godoc
// @Summary Create a journal
// @Tags journals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body gateway.NewJournal true "Name, color and icon"
// @Success 201 {object} models.Journal
// @Failure 400 {string} string "Bad request"
// @Router /journals [post]
func (h *JournalHandler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	var req gateway.NewJournal
	if err := decode(r, &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	j, err := h.svc.CreateJournal(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

func (h *JournalHandler) UpdateJournal(w http.ResponseWriter, r *http.Request) {
	var req gateway.JournalPatch
	if err := decode(r, &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	j, err := h.svc.UpdateJournal(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// DeleteJournal godoc
// @Summary Delete a journal
// @Description Deletes the journal and every entry in it, trashed ones included. Not recoverable.
// @Tags journals
// @Security BearerAuth
// @Success 204
// @Failure 404 {string} string "Not found"
// @Router /journals/{id} [delete]
func (h *JournalHandler) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteJournal(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEntries godoc
// @Summary List entries
// @Description Every entry of the user including trashed ones, newest first. Optional filters: journal_id, start_date, end_date (YYYY-MM-DD).
// @Tags entries
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.EntryRecord
// @Failure 400 {string} string "Bad request"
// @Router /entries [get]
func (h *JournalHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	journalID, start, end := q.Get("journal_id"), q.Get("start_date"), q.Get("end_date")
	if start != "" && !dates.Valid(start) {
		http.Error(w, "invalid start_date format; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if end != "" && !dates.Valid(end) {
		http.Error(w, "invalid end_date format; expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	entries, err := h.svc.ListEntries(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	out := entries[:0]
	for _, e := range entries {
		if journalID != "" && e.JournalID != journalID {
			continue
		}
		if (start != "" && e.EntryDate < start) || (end != "" && e.EntryDate > end) {
			continue
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, toRecords(out))
}

func (h *JournalHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req gateway.NewEntry
	if err := decode(r, &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	e, err := h.svc.CreateEntry(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, e.Record())
}

func (h *JournalHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req gateway.EntryPatch
	if err := decode(r, &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	e, err := h.svc.UpdateEntry(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Record())
}

// TrashEntry godoc
// @Summary Move an entry to the trash
// @Description Idempotent. The entry can be recovered for 30 days.
// @Tags entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body trashRequest false "Optional deletion time"
// @Success 200 {object} models.EntryRecord
// @Router /entries/{id}/trash [post]
func (h *JournalHandler) TrashEntry(w http.ResponseWriter, r *http.Request) {
	var req trashRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	var at time.Time
	if req.DeletedAt != "" {
		var err error
		if at, err = time.Parse(time.RFC3339, req.DeletedAt); err != nil {
			http.Error(w, "invalid deleted_at; expected RFC 3339", http.StatusBadRequest)
			return
		}
	}
	e, err := h.svc.TrashEntry(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), at)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Record())
}

func (h *JournalHandler) RecoverEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.RecoverEntry(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Record())
}

// PurgeEntry godoc
// @Summary Permanently delete a trashed entry
// @Tags entries
// @Security BearerAuth
// @Success 204
// @Failure 404 {string} string "Not found"
// @Failure 409 {string} string "Entry is not in the trash"
// @Router /entries/{id} [delete]
func (h *JournalHandler) PurgeEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.PurgeEntry(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

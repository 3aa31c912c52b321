package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jotter/internal/cache"
	"jotter/internal/dates"
	"jotter/internal/middleware"
	"jotter/internal/models"
	"jotter/internal/repository"
	"jotter/internal/services"
)

type api struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newAPI(t *testing.T, cfg RouterConfig) *api {
	t.Helper()
	repo := repository.NewMemory()
	enc, err := services.NewEncryptionService(bytes.Repeat([]byte{7}, 32), bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)
	authSvc := services.NewAuthService(repo, enc, cache.NewMemory(), []byte("test-secret"), time.Hour)
	journalSvc := services.NewJournalService(repo, enc, nil)
	log := zap.NewNop()

	if cfg.CORSOrigins == nil {
		cfg.CORSOrigins = []string{"*"}
	}
	h := NewRouter(cfg, Deps{
		Auth:      NewAuthHandler(authSvc, log),
		Users:     NewUserHandler(authSvc, log),
		Journals:  NewJournalHandler(journalSvc, log),
		Dashboard: NewDashboardHandler(journalSvc, log),
		AuthMW:    middleware.NewAuthMiddleware(authSvc, log),
		Log:       log,
	})
	return &api{t: t, handler: h}
}

func (a *api) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *api) signup() AuthResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/signup", signupRequest{Email: "ann@example.com", Password: "hunter22", DisplayName: "Ann"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decodeInto[AuthResponse](a.t, rec)
	a.token = res.Token
	return res
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t, RouterConfig{})

	res := a.signup()
	require.NotNil(t, res.Profile)
	assert.Equal(t, "Ann", res.Profile.DisplayName)
	assert.Equal(t, "ann@example.com", res.Profile.Email)

	rec := a.do(http.MethodPost, "/api/auth/signup", signupRequest{Email: "ANN@example.com", Password: "hunter22", DisplayName: "Other"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/signup", signupRequest{Email: "bob@example.com", Password: "123", DisplayName: "Bob"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/login", credentials{Email: "ann@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/login", credentials{Email: "ann@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeInto[AuthResponse](t, rec)
	assert.NotEmpty(t, login.Token)
	require.NotNil(t, login.Profile)
	a.token = login.Token

	rec = a.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ann", decodeInto[models.User](t, rec).DisplayName)

	rec = a.do(http.MethodPut, "/api/profile", profileRequest{DisplayName: "Annie"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Annie", decodeInto[models.User](t, rec).DisplayName)

	rec = a.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session expired\n", rec.Body.String())

	a.token = ""
	rec = a.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing token\n", rec.Body.String())
}

func TestJournalsAndEntries(t *testing.T) {
	a := newAPI(t, RouterConfig{})
	a.signup()

	rec := a.do(http.MethodPost, "/api/journals", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/journals", map[string]string{"name": "Daily", "color": "#10b981", "icon": "📓"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	j := decodeInto[models.Journal](t, rec)
	assert.Equal(t, "Daily", j.Name)
	assert.Equal(t, "#10B981", j.Color)

	rec = a.do(http.MethodPut, "/api/journals/"+j.ID, map[string]string{"name": "Diary"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Diary", decodeInto[models.Journal](t, rec).Name)

	rec = a.do(http.MethodPut, "/api/journals/nope", map[string]string{"name": "Diary"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/api/journals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeInto[[]models.Journal](t, rec), 1)

	today := dates.Today(time.Now(), time.UTC)
	rec = a.do(http.MethodPost, "/api/entries", map[string]string{"journal_id": j.ID, "entry_date": dates.AddDays(today, 5), "content": "later"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/entries", map[string]string{"journal_id": j.ID, "content": "<p>first</p>"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decodeInto[models.EntryRecord](t, rec)
	assert.Equal(t, today, e.EntryDate)
	assert.Equal(t, "<p>first</p>", e.Content)

	rec = a.do(http.MethodPut, "/api/entries/"+e.ID, map[string]any{"archived": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeInto[models.EntryRecord](t, rec).Archived)

	rec = a.do(http.MethodGet, "/api/entries?journal_id="+j.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeInto[[]models.EntryRecord](t, rec), 1)

	rec = a.do(http.MethodGet, "/api/entries?journal_id=other", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeInto[[]models.EntryRecord](t, rec))

	rec = a.do(http.MethodGet, "/api/entries?start_date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodDelete, "/api/entries/"+e.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "purge needs the entry in the trash first")

	rec = a.do(http.MethodPost, "/api/entries/"+e.ID+"/trash", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trashed := decodeInto[models.EntryRecord](t, rec)
	require.NotNil(t, trashed.DeletedAt)
	assert.False(t, trashed.Archived)

	rec = a.do(http.MethodPut, "/api/entries/"+e.ID, map[string]string{"content": "edit"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/entries/"+e.ID+"/recover", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeInto[models.EntryRecord](t, rec).DeletedAt)

	at := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	rec = a.do(http.MethodPost, "/api/entries/"+e.ID+"/trash", trashRequest{DeletedAt: at})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodPost, "/api/entries/"+e.ID+"/trash", trashRequest{DeletedAt: "last week"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodDelete, "/api/entries/"+e.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/api/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeInto[[]models.EntryRecord](t, rec))

	rec = a.do(http.MethodDelete, "/api/journals/"+j.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodDelete, "/api/journals/"+j.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	a := newAPI(t, RouterConfig{})
	a.signup()

	rec := a.do(http.MethodPost, "/api/journals", map[string]string{"name": "Daily"})
	require.Equal(t, http.StatusCreated, rec.Code)
	j := decodeInto[models.Journal](t, rec)

	today := dates.Today(time.Now(), time.UTC)
	for _, day := range []string{today, dates.AddDays(today, -1)} {
		rec = a.do(http.MethodPost, "/api/entries", map[string]string{"journal_id": j.ID, "entry_date": day, "content": "x"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = a.do(http.MethodGet, "/api/stats?tz=UTC", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeInto[models.DashboardStats](t, rec)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.True(t, stats.HasTodayEntry)
	assert.Equal(t, 2, stats.EntriesPerJournal[j.ID])

	rec = a.do(http.MethodGet, "/api/stats?tz=Mars/Olympus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRateLimit_SpoofedForwardedFor(t *testing.T) {
	login := func(a *api, ip string) int {
		b, err := json.Marshal(credentials{Email: "x@example.com", Password: "whatever"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(b))
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := newAPI(t, RouterConfig{AuthRateLimit: 0.0001, AuthRateBurst: 1})
	limited := 0
	for i := 0; i < 10; i++ {
		if login(direct, fmt.Sprintf("198.51.100.%d", i)) == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 9, limited, "without a trusted proxy the socket address is the key")

	proxied := newAPI(t, RouterConfig{AuthRateLimit: 0.0001, AuthRateBurst: 1, TrustProxy: true})
	assert.Equal(t, http.StatusUnauthorized, login(proxied, "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, login(proxied, "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, login(proxied, "198.51.100.1"))
}

func TestAuthRateLimit(t *testing.T) {
	a := newAPI(t, RouterConfig{AuthRateLimit: 0.0001, AuthRateBurst: 1})

	rec := a.do(http.MethodPost, "/api/auth/login", credentials{Email: "x@example.com", Password: "whatever"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodPost, "/api/auth/login", credentials{Email: "x@example.com", Password: "whatever"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t, RouterConfig{})
	rec := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "jotter_http_requests_total"))
}

func TestHealthUnavailable(t *testing.T) {
	log := zap.NewNop()
	h := NewRouter(RouterConfig{CORSOrigins: []string{"*"}}, Deps{
		Auth:      NewAuthHandler(nil, log),
		Users:     NewUserHandler(nil, log),
		Journals:  NewJournalHandler(nil, log),
		Dashboard: NewDashboardHandler(nil, log),
		AuthMW:    middleware.NewAuthMiddleware(nil, log),
		Log:       log,
		Health:    func(*http.Request) error { return errors.New("db down") },
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWriteError_Unknown(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zap.NewNop(), errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server error\n", rec.Body.String())
}

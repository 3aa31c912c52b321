package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	mw "jotter/internal/middleware"
)

// RouterConfig holds the HTTP settings taken from the server config.
type RouterConfig struct {
	CORSOrigins   []string
	AuthRateLimit float64
	AuthRateBurst int
	// TrustProxy honours X-Forwarded-For and X-Real-IP. Enable it only when a
	// proxy in front of the server sets those headers.
	TrustProxy bool
}

// Deps are the handlers and middleware the router mounts.
type Deps struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Journals  *JournalHandler
	Dashboard *DashboardHandler
	AuthMW    *mw.AuthMiddleware
	Log       *zap.Logger
	// Health reports backing store reachability; nil means always healthy.
	Health func(r *http.Request) error
}

// NewRouter builds the API: /health, /metrics and the /api routes.
func NewRouter(cfg RouterConfig, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.Recover(d.Log))
	r.Use(mw.ZapRequestLogger(d.Log))
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			if err := d.Health(r); err != nil {
				d.Log.Warn("health check failed", zap.Error(err))
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			if cfg.AuthRateLimit > 0 {
				pub.Use(mw.RateLimitPerIP(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst))
			}
			pub.Post("/auth/signup", d.Auth.Signup)
			pub.Post("/auth/login", d.Auth.Login)
		})

		api.Group(func(pr chi.Router) {
			pr.Use(d.AuthMW.RequireAuth)
			pr.Get("/auth/me", d.Users.GetMe)
			pr.Post("/auth/logout", d.Auth.Logout)
			pr.Put("/profile", d.Users.SaveProfile)

			pr.Get("/journals", d.Journals.ListJournals)
			pr.Post("/journals", d.Journals.CreateJournal)
			pr.Put("/journals/{id}", d.Journals.UpdateJournal)
			pr.Delete("/journals/{id}", d.Journals.DeleteJournal)

			pr.Get("/entries", d.Journals.ListEntries)
			pr.Post("/entries", d.Journals.CreateEntry)
			pr.Put("/entries/{id}", d.Journals.UpdateEntry)
			pr.Delete("/entries/{id}", d.Journals.PurgeEntry)
			pr.Post("/entries/{id}/trash", d.Journals.TrashEntry)
			pr.Post("/entries/{id}/recover", d.Journals.RecoverEntry)

			pr.Get("/stats", d.Dashboard.Get)
		})
	})
	return r
}

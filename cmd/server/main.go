package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"jotter/internal/cache"
	"jotter/internal/config"
	"jotter/internal/crypto"
	"jotter/internal/db"
	"jotter/internal/handlers"
	"jotter/internal/logging"
	mw "jotter/internal/middleware"
	"jotter/internal/repository"
	"jotter/internal/services"
)

func main() {
	cfg, err := config.LoadServer(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	logger, flush := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Rotate: logging.FileRotate{Filename: cfg.Log.File, MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 30, Compress: true},
	})
	defer flush()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		flush()
		os.Exit(1)
	}
}

func run(cfg *config.Server, logger *zap.Logger) error {
	ctx := context.Background()

	encKey, err := crypto.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	idxKey, err := crypto.ParseKey(cfg.BlindIndexKey)
	if err != nil {
		return err
	}
	enc, err := services.NewEncryptionService(encKey, idxKey)
	if err != nil {
		return err
	}

	var (
		repo   repository.Repository
		health func(*http.Request) error
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := db.RunMigrations(ctx, conn); err != nil {
			return err
		}
		repo = repository.NewPostgres(conn)
		health = func(r *http.Request) error { return conn.PingContext(r.Context()) }
	} else {
		logger.Warn("DATABASE_URL not set; data is kept in memory and lost on restart")
		repo = repository.NewMemory()
	}

	var revoker cache.Revoker
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			return err
		}
		revoker = rdb
	} else {
		logger.Info("REDIS_ADDR not set; revoked tokens are tracked in memory")
		revoker = cache.NewMemory()
	}

	authSvc := services.NewAuthService(repo, enc, revoker, []byte(cfg.JWTSecret), cfg.TokenTTL)
	journalSvc := services.NewJournalService(repo, enc, logger)

	router := handlers.NewRouter(handlers.RouterConfig{
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,
		TrustProxy:    cfg.TrustProxy,
	}, handlers.Deps{
		Auth:      handlers.NewAuthHandler(authSvc, logger),
		Users:     handlers.NewUserHandler(authSvc, logger),
		Journals:  handlers.NewJournalHandler(journalSvc, logger),
		Dashboard: handlers.NewDashboardHandler(journalSvc, logger),
		AuthMW:    mw.NewAuthMiddleware(authSvc, logger),
		Log:       logger,
		Health:    health,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-quit:
	}
	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

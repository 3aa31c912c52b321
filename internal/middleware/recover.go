package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Recover turns a handler panic into a 500 and logs it with the request id.
func Recover(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Stack("stack"),
				)
				http.Error(w, "server error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

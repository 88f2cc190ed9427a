package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func logFromRequest(r *http.Request) *slog.Logger {
	return slog.With("requestID", middleware.GetReqID(r.Context()))
}

// requestLogger writes one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logFromRequest(r).Info(
				"http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"remote", r.RemoteAddr,
				"elapsed", time.Since(start).String(),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/metrics"
)

type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *wrappedWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// silentPaths are high-frequency polling endpoints that are only logged on errors (status >= 400).
var silentPaths = map[string]bool{
	"/api/health": true,
	"/api/jobs":   true,
	"/metrics":    true,
}

// Logger logs each request through zerolog and records HTTP metrics by route pattern.
func Logger(next http.Handler) http.Handler {
	logger := logging.Component("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapped.statusCode), elapsed.Seconds())

		if silentPaths[r.URL.Path] && wrapped.statusCode < 400 {
			return
		}
		evt := logger.Info()
		if wrapped.statusCode >= 500 {
			evt = logger.Error()
		} else if wrapped.statusCode >= 400 {
			evt = logger.Warn()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", elapsed).
			Msg("request")
	})
}

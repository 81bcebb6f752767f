package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/log"
)

// securityHeaders sets the response headers every page of the table view
// carries. The view is read-only, so no rate limiting is applied.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs every completed request with its status and duration.
// It runs after middleware.RealIP, so RemoteAddr already holds the client IP.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.LogHTTPEnd(r.Context(), r, status, time.Since(start).Milliseconds(), r.RemoteAddr)
	})
}

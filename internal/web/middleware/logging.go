// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/inputsheet/internal/auth"
	"github.com/JonMunkholm/inputsheet/internal/logging"
)

// Logger logs one structured line per request once the response is written.
//
// Log fields:
//   - method, path: the request line
//   - status: response status code
//   - bytes: response body size
//   - duration_ms: processing time
//   - ip: client IP (after TrustedRealIP)
//   - username: session user, when the request was authenticated
//
// request_id is added by logging.FromContext.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		rec := &requestUser{}
		next.ServeHTTP(ww, r.WithContext(withRequestUser(r.Context(), rec)))

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"bytes", ww.written,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", ClientIP(r),
		}
		if rec.username != "" {
			args = append(args, "username", rec.username)
		}

		logger := logging.FromContext(r.Context())
		switch {
		case ww.status >= 500:
			logger.Error("request", args...)
		case ww.status >= 400:
			logger.Warn("request", args...)
		default:
			logger.Info("request", args...)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// the number of body bytes written.
type responseWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// requestUser is filled in by LoadSession so the access log can name the
// user even though the session is resolved further down the chain.
type requestUser struct {
	username string
}

func noteSessionUser(r *http.Request, sess auth.Session) {
	if rec, ok := r.Context().Value(requestUserKey).(*requestUser); ok {
		rec.username = sess.Username
	}
}

type ctxKey int

const requestUserKey ctxKey = iota

func withRequestUser(ctx context.Context, rec *requestUser) context.Context {
	return context.WithValue(ctx, requestUserKey, rec)
}

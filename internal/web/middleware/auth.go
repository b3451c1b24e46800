package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/inputsheet/internal/auth"
	"github.com/JonMunkholm/inputsheet/internal/core"
)

// LoadSession attaches the session named by the request cookie, if any, to
// the request context. Requests without a live session pass through
// unchanged; RequireSession decides whether that is acceptable.
func LoadSession(sessions *auth.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := sessions.Lookup(cookie.Value)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			noteSessionUser(r, sess)
			ctx := auth.WithSession(r.Context(), sess)
			ctx = core.ContextWithActor(ctx, sess.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests without a live session with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			slog.Warn("auth: no session",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			writeAuthError(w, core.ErrAuthRequired, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose session does not carry role. A missing
// session is 401; a session with another role is 403.
func RequireRole(role core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := auth.FromContext(r.Context())
			if !ok {
				writeAuthError(w, core.ErrAuthRequired, http.StatusUnauthorized)
				return
			}
			if sess.Role != role {
				slog.Warn("auth: role denied",
					"path", r.URL.Path,
					"method", r.Method,
					"username", sess.Username,
					"role", sess.Role,
				)
				writeAuthError(w, core.ErrForbidden, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error, status int) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg.Message,
		"code":  msg.Code,
	})
}

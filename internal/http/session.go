package http

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/auth"
	"github.com/kjstillabower/weatherlog/internal/observability"
)

// SessionMiddleware attaches the signed-in principal to the request context.
// A tampered or expired cookie is cleared and the request continues anonymously.
func SessionMiddleware(sessions *auth.SessionManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := sessions.Read(r)
			switch {
			case err == nil:
				ctx := auth.WithPrincipal(r.Context(), p)
				ctx = observability.WithLogger(ctx, observability.LoggerFrom(ctx).With(zap.Uint("user_id", p.UserID)))
				r = r.WithContext(ctx)
			case errors.Is(err, auth.ErrInvalidSession):
				observability.LoggerFrom(r.Context()).Debug("discarding invalid session", zap.Error(err))
				sessions.Clear(w)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser redirects anonymous requests to /login.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminPage redirects anyone but an admin to /login.
func RequireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := auth.FromContext(r.Context()); !ok || !p.IsAdmin {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminAction guards admin mutations: anonymous requests go to /login,
// signed-in non-admins get 403.
func RequireAdminAction(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if !p.IsAdmin {
			observability.LoggerFrom(r.Context()).Info("admin action denied", zap.String("path", r.URL.Path))
			http.Error(w, "Access denied", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package rbac

import (
	"log/slog"
	"net/http"

	"github.com/atlas-ums/atlas-ums/internal/platform/httpx"
	"github.com/atlas-ums/atlas-ums/internal/rls"
)

// Middleware gates mutation entry points on permissions held by the request
// principal. Authorization here is a hard gate: a missing permission rejects
// the request before the database is touched. Listing endpoints do not use
// this gate; they degrade to empty collections instead.
type Middleware struct {
	Logger *slog.Logger
}

// Require ensures the principal holds the given permission.
func (m Middleware) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := rls.PrincipalFromContext(r.Context())
			if !p.IsAuthenticated() {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !p.HasPerm(perm) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.Int64("user_id", p.UserID),
						slog.String("permission", perm),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the principal holds at least one of the permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := rls.PrincipalFromContext(r.Context())
			if !p.IsAuthenticated() {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			for _, perm := range perms {
				if p.HasPerm(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/platform/httpx"
)

// Middleware applies the same mapping table server-side so a stale UI or a
// crafted request cannot bypass the rules the screens enforce.
type Middleware struct {
	Gate   *Gate
	Actor  func(ctx context.Context) *authz.Actor
	Logger *slog.Logger
	// Observer, when set, is called with the verdict of every checked request.
	Observer func(permission string, allowed bool)
}

// Require authorizes every request against the mapping table before the
// handler runs.
func (m Middleware) Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor *authz.Actor
			if m.Actor != nil {
				actor = m.Actor(r.Context())
			}
			err := m.Gate.Check(actor, r.Method, r.URL.Path)
			if m.Observer != nil {
				if perm, ok := m.Gate.table.Resolve(r.Method, r.URL.Path); ok {
					m.Observer(perm.ID(), err == nil)
				}
			}
			if err != nil {
				var denied *authz.PermissionDeniedError
				if errors.As(err, &denied) {
					if m.Logger != nil {
						m.Logger.Warn("permission denied",
							slog.String("method", denied.Method),
							slog.String("path", denied.Path),
							slog.String("permission", denied.Permission.ID()))
					}
					httpx.Problem(w, http.StatusForbidden, "Permission Denied", denied.Error())
					return
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny guards a route group that spans modules: the request passes when
// the actor holds at least one of the listed permissions. The cross-entity
// timeline uses it with every module's view-history permission.
func (m Middleware) RequireAny(perms ...authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor *authz.Actor
			if m.Actor != nil {
				actor = m.Actor(r.Context())
			}
			for _, p := range perms {
				if m.Gate.eval.Evaluate(actor, p.Module, p.Action) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Permission Denied",
				(&authz.PermissionDeniedError{Method: r.Method, Path: r.URL.Path, Reason: "no history permission on any module"}).Error())
		})
	}
}

// RequirePermission guards a route group with one explicit permission,
// bypassing the table. Used for routes outside the resource path convention.
func (m Middleware) RequirePermission(p authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor *authz.Actor
			if m.Actor != nil {
				actor = m.Actor(r.Context())
			}
			if m.Gate.eval.Evaluate(actor, p.Module, p.Action) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Permission Denied", authz.Denied(r.Method, r.URL.Path, p).Error())
		})
	}
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/keystone-admin/keystone/internal/auth"
	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/authz/gate"
	"github.com/keystone-admin/keystone/internal/departments"
	"github.com/keystone-admin/keystone/internal/jobtitles"
	"github.com/keystone-admin/keystone/internal/observability"
	"github.com/keystone-admin/keystone/internal/permits"
	revisionhttp "github.com/keystone-admin/keystone/internal/revision/http"
	"github.com/keystone-admin/keystone/internal/roles"
	"github.com/keystone-admin/keystone/internal/shared"
	"github.com/keystone-admin/keystone/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Actors         ActorResolver
	Tokens         TokenVerifier

	AuthHandler        *auth.Handler
	DepartmentsHandler *departments.Handler
	PermitsHandler     *permits.Handler
	JobTitlesHandler   *jobtitles.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	TimelineHandler    *revisionhttp.TimelineHandler

	GateMiddleware gate.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with console defaults. Resource routes
// sit behind the gate middleware; auth and health endpoints do not.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Actors:         params.Actors,
		Tokens:         params.Tokens,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.GateMiddleware.Require())

		r.Route("/departments", params.DepartmentsHandler.MountRoutes)
		r.Route("/permits", params.PermitsHandler.MountRoutes)
		r.Route("/job-titles", params.JobTitlesHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
	})

	if params.TimelineHandler != nil {
		r.Route("/timeline", func(r chi.Router) {
			r.Use(params.GateMiddleware.RequireAny(historyPermissions()...))
			params.TimelineHandler.MountRoutes(r)
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// historyPermissions lists view-history across every registered module.
func historyPermissions() []authz.Permission {
	catalog := authz.NewCatalog()
	var perms []authz.Permission
	for _, p := range catalog.Permissions() {
		if p.Action == authz.ActionViewHistory {
			perms = append(perms, p)
		}
	}
	return perms
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/code-ga/container-dashboard/internal/auth"
	"github.com/code-ga/container-dashboard/internal/eggs"
	"github.com/code-ga/container-dashboard/internal/observability"
	"github.com/code-ga/container-dashboard/internal/rbac"
	"github.com/code-ga/container-dashboard/internal/roles"
	"github.com/code-ga/container-dashboard/internal/shared"
	"github.com/code-ga/container-dashboard/internal/token"
	"github.com/code-ga/container-dashboard/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	TokenVerifier      *token.Verifier
	AuthHandler        *auth.Handler
	EggsHandler        *eggs.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.PermissionsHandler
	RBACMiddleware     rbac.Middleware
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with dashboard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		TokenVerifier:  params.TokenVerifier,
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

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
	})
	r.Route("/eggs", func(r chi.Router) {
		params.EggsHandler.MountRoutes(r)
	})
	r.Route("/roles", func(r chi.Router) {
		params.RolesHandler.MountRoutes(r)
	})
	r.Route("/users", func(r chi.Router) {
		params.UsersHandler.MountRoutes(r)
	})
	r.Route("/permissions", func(r chi.Router) {
		params.PermissionsHandler.MountRoutes(r)
	})

	return r
}

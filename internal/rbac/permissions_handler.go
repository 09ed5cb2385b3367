package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/shared"
	"github.com/code-ga/container-dashboard/internal/upstream"
)

// Catalog lists the grantable permissions known to the fleet API.
type Catalog interface {
	ListPermissions(ctx context.Context, token string) ([]upstream.Permission, error)
}

// PermissionsHandler serves the permission catalog and the current
// user's effective permission set.
type PermissionsHandler struct {
	logger   *slog.Logger
	catalog  Catalog
	registry *Registry
	rbac     Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, catalog Catalog, registry *Registry, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, catalog: catalog, registry: registry, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(PermPermissionRead))
		r.Get("/", h.listPermissions)
	})
	r.Get("/mine", h.myPermissions)
}

type permissionListResponse struct {
	Permissions []upstream.Permission `json:"permissions"`
}

type myPermissionsResponse struct {
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Loading     bool     `json:"loading"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	perms, err := h.catalog.ListPermissions(r.Context(), sess.Token())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionListResponse{Permissions: perms})
}

func (h *PermissionsHandler) myPermissions(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if !sess.Authenticated() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	store := h.registry.Store(sess.ID, sess.Token())
	if err := store.Prime(r.Context(), UserFromIdentity(sess.Identity())); errors.Is(err, httpx.ErrUnauthorized) {
		h.registry.Drop(sess.ID)
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrSessionExpired.Error())
		return
	}
	eval := store.Evaluator()
	httpx.JSON(w, http.StatusOK, myPermissionsResponse{
		Roles:       eval.UserRoles(),
		Permissions: eval.Permissions(),
		Loading:     store.Loading(),
	})
}

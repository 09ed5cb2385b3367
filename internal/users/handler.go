package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/rbac"
	"github.com/code-ga/container-dashboard/internal/shared"
	"github.com/code-ga/container-dashboard/internal/upstream"
)

// Handler serves user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUserRead))
		r.Get("/", h.list)
		r.Get("/{userID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUserUpdate))
		r.Patch("/{userID}", h.update)
		r.Put("/{userID}/roles", h.setRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUserDelete))
		r.Delete("/{userID}", h.delete)
	})
}

type userListResponse struct {
	Users []User            `json:"users"`
	Meta  shared.Pagination `json:"meta"`
}

type updateUserForm struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

type setRolesForm struct {
	RoleIDs []string `json:"roleIds"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	list, err := h.service.ListUsers(r.Context(), sess.Token())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page, perPage := shared.PageParams(r)
	meta := shared.NewPagination(page, perPage, len(list))
	httpx.JSON(w, http.StatusOK, userListResponse{Users: shared.PageSlice(list, meta), Meta: meta})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), sess.Token(), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form updateUserForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	user, err := h.service.UpdateUser(r.Context(), sess.Token(), chi.URLParam(r, "userID"), upstream.UserInput(form))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) setRoles(w http.ResponseWriter, r *http.Request) {
	var form setRolesForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	user, err := h.service.SetRoles(r.Context(), sess.Token(), chi.URLParam(r, "userID"), form.RoleIDs)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), sess.Token(), chi.URLParam(r, "userID")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package eggs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/rbac"
	"github.com/code-ga/container-dashboard/internal/shared"
)

// Handler serves container template endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers egg routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermEggRead))
		r.Get("/", h.list)
		r.Get("/{eggID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermEggCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermEggUpdate))
		r.Patch("/{eggID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermEggDelete))
		r.Delete("/{eggID}", h.delete)
	})
}

type eggForm struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	DockerImage    string            `json:"dockerImage"`
	StartupCommand string            `json:"startupCommand"`
	Env            map[string]string `json:"env"`
}

type eggListResponse struct {
	Eggs []Egg             `json:"eggs"`
	Meta shared.Pagination `json:"meta"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	list, err := h.service.ListEggs(r.Context(), sess.Token())
	if err != nil {
		h.logger.Error("list eggs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	page, perPage := shared.PageParams(r)
	meta := shared.NewPagination(page, perPage, len(list))
	httpx.JSON(w, http.StatusOK, eggListResponse{Eggs: shared.PageSlice(list, meta), Meta: meta})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	egg, err := h.service.GetEgg(r.Context(), sess.Token(), chi.URLParam(r, "eggID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, egg)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form eggForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	egg, err := h.service.CreateEgg(r.Context(), sess.Token(), Input(form))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, egg)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form eggForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	egg, err := h.service.UpdateEgg(r.Context(), sess.Token(), chi.URLParam(r, "eggID"), Input(form))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, egg)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.DeleteEgg(r.Context(), sess.Token(), chi.URLParam(r, "eggID")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Package auth establishes and tears down dashboard sessions against
// the fleet API's authentication endpoints.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/rbac"
	"github.com/code-ga/container-dashboard/internal/shared"
	"github.com/code-ga/container-dashboard/internal/upstream"
)

// API is the slice of the fleet client the handler needs.
type API interface {
	Login(ctx context.Context, email, password string) (upstream.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Handler serves login, logout and the current-session endpoint.
type Handler struct {
	logger    *slog.Logger
	api       API
	sessions  *shared.SessionManager
	registry  *rbac.Registry
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, api API, sessions *shared.SessionManager, registry *rbac.Registry) *Handler {
	return &Handler{
		logger:    logger,
		api:       api,
		sessions:  sessions,
		registry:  registry,
		validator: validator.New(),
	}
}

// MountRoutes registers authentication routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         string    `json:"image,omitempty"`
	RoleIDs       []string  `json:"roleIds"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type sessionResponse struct {
	User        sessionUser `json:"user"`
	Roles       []string    `json:"roles"`
	Permissions []string    `json:"permissions"`
	Loading     bool        `json:"loading"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var form loginRequest
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	result, err := h.api.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, httpx.ErrUnauthorized) || errors.Is(err, httpx.ErrValidation) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidCredentials.Error())
			return
		}
		h.logger.Error("login against fleet api", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	identity := identityFromUser(result.User)
	sess.SetToken(result.Token)
	sess.SetIdentity(identity)

	store := h.registry.Store(sess.ID, result.Token)
	store.Prime(r.Context(), rbac.UserFromIdentity(identity))

	httpx.JSON(w, http.StatusOK, h.sessionBody(store))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if !sess.Authenticated() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	if err := h.api.Logout(r.Context(), sess.Token()); err != nil {
		// Token revocation is best effort; the local session dies
		// either way.
		h.logger.Warn("logout against fleet api", slog.Any("error", err))
	}
	h.registry.Drop(sess.ID)
	h.sessions.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if !sess.Authenticated() {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	store := h.registry.Store(sess.ID, sess.Token())
	if err := store.Prime(r.Context(), rbac.UserFromIdentity(sess.Identity())); errors.Is(err, httpx.ErrUnauthorized) {
		h.registry.Drop(sess.ID)
		h.sessions.Destroy(sess)
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrSessionExpired.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, h.sessionBody(store))
}

func (h *Handler) sessionBody(store *rbac.Store) sessionResponse {
	eval := store.Evaluator()
	body := sessionResponse{
		Roles:       eval.UserRoles(),
		Permissions: eval.Permissions(),
		Loading:     store.Loading(),
	}
	if user := store.User(); user != nil {
		body.User = sessionUser{
			ID:            user.ID,
			Name:          user.Name,
			Email:         user.Email,
			EmailVerified: user.EmailVerified,
			Image:         user.Image,
			RoleIDs:       user.RoleIDs,
			CreatedAt:     user.CreatedAt,
			UpdatedAt:     user.UpdatedAt,
		}
	}
	return body
}

func identityFromUser(u upstream.User) *shared.Identity {
	return &shared.Identity{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
		RoleIDs:       append([]string(nil), u.RoleIDs...),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

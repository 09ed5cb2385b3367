package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Registry *Registry
	Logger   *slog.Logger
}

// RequireAny ensures the current user has at least one of the required
// permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard(normalized, func(eval *Evaluator) bool {
		return eval.HasAnyPermission(normalized)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard(normalized, func(eval *Evaluator) bool {
		return eval.HasAllPermissions(normalized)
	})
}

func (m Middleware) guard(normalized []string, allowed func(*Evaluator) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			sess := shared.SessionFromContext(r.Context())
			if !sess.Authenticated() {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			store := m.Registry.Store(sess.ID, sess.Token())
			if err := store.Prime(r.Context(), UserFromIdentity(sess.Identity())); errors.Is(err, httpx.ErrUnauthorized) {
				// The fleet API no longer accepts this token.
				m.Registry.Drop(sess.ID)
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrSessionExpired.Error())
				return
			}
			eval := store.Evaluator()
			if !allowed(eval) {
				if m.Logger != nil {
					m.Logger.Debug("permission denied",
						slog.String("path", r.URL.Path),
						slog.String("required", strings.Join(normalized, ",")))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", httpx.PermissionDeniedMessage)
				return
			}
			ctx := ContextWithEvaluator(r.Context(), eval)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

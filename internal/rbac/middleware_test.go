package rbac

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/shared"
)

var assertAnError = errors.New("upstream down")

func authenticatedRequest(t *testing.T, sess *shared.Session) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/eggs", nil)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func testSession(id, token string, identity *shared.Identity) *shared.Session {
	sess := &shared.Session{ID: id}
	sess.SetToken(token)
	sess.SetIdentity(identity)
	return sess
}

func newTestMiddleware(dir Directory) Middleware {
	return Middleware{Registry: NewRegistry(dir, nil, time.Minute, time.Hour)}
}

func TestMiddlewareUnauthenticated(t *testing.T) {
	m := newTestMiddleware(&fakeDirectory{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/eggs", nil)
	res := httptest.NewRecorder()
	m.RequireAny(PermEggRead)(next).ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMiddlewareForbidden(t *testing.T) {
	dir := &fakeDirectory{}
	dir.set(User{ID: "u1"}, nil)
	m := newTestMiddleware(dir)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	sess := testSession("sess-1", "tok", &shared.Identity{ID: "u1"})
	res := httptest.NewRecorder()
	m.RequireAny(PermEggRead)(next).ServeHTTP(res, authenticatedRequest(t, sess))

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.True(t, strings.Contains(res.Body.String(), httpx.PermissionDeniedMessage))
}

func TestMiddlewareGranted(t *testing.T) {
	dir := &fakeDirectory{}
	dir.set(
		User{ID: "u1", RoleIDs: []string{"r1"}},
		[]Role{{ID: "r1", Name: "Operator", Permissions: []string{"egg:read"}}},
	)
	m := newTestMiddleware(dir)

	var seen *Evaluator
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = EvaluatorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	sess := testSession("sess-1", "tok", &shared.Identity{ID: "u1"})
	res := httptest.NewRecorder()
	m.RequireAny(PermEggRead)(next).ServeHTTP(res, authenticatedRequest(t, sess))

	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, seen)
	assert.True(t, seen.HasPermission(PermEggRead))
}

func TestMiddlewareRequireAll(t *testing.T) {
	dir := &fakeDirectory{}
	dir.set(
		User{ID: "u1", RoleIDs: []string{"r1"}},
		[]Role{{ID: "r1", Name: "Operator", Permissions: []string{"egg:read"}}},
	)
	m := newTestMiddleware(dir)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	sess := testSession("sess-1", "tok", &shared.Identity{ID: "u1"})

	res := httptest.NewRecorder()
	m.RequireAll(PermEggRead, PermEggDelete)(next).ServeHTTP(res, authenticatedRequest(t, sess))
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = httptest.NewRecorder()
	m.RequireAll(PermEggRead)(next).ServeHTTP(res, authenticatedRequest(t, sess))
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestMiddlewareNoRequirementsPassesThrough(t *testing.T) {
	m := newTestMiddleware(&fakeDirectory{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/eggs", nil)
	res := httptest.NewRecorder()
	m.RequireAny()(next).ServeHTTP(res, req)

	assert.Equal(t, http.StatusNoContent, res.Code)
}

func TestMiddlewareRevokedTokenExpiresSession(t *testing.T) {
	dir := &fakeDirectory{userErr: httpx.ErrUnauthorized, rolesErr: httpx.ErrUnauthorized}
	m := newTestMiddleware(dir)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	sess := testSession("sess-1", "tok", &shared.Identity{ID: "u1"})
	res := httptest.NewRecorder()
	m.RequireAny(PermDashboardRead)(next).ServeHTTP(res, authenticatedRequest(t, sess))

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.True(t, strings.Contains(res.Body.String(), shared.ErrSessionExpired.Error()))
	assert.Equal(t, 0, m.Registry.Len())
}

func TestMiddlewareFallbackUserWhenUpstreamDown(t *testing.T) {
	dir := &fakeDirectory{userErr: assertAnError, rolesErr: assertAnError}
	m := newTestMiddleware(dir)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Session claims alone still grant the implicit default permission.
	sess := testSession("sess-1", "tok", &shared.Identity{ID: "u1", RoleIDs: []string{"r1"}})
	res := httptest.NewRecorder()
	m.RequireAny(PermDashboardRead)(next).ServeHTTP(res, authenticatedRequest(t, sess))

	assert.Equal(t, http.StatusOK, res.Code)
}

package upstream_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/upstream"
	_ "github.com/code-ga/container-dashboard/testing"
)

// fakeFleet simulates the fleet manager API the client talks to.
func fakeFleet(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()

	requireToken := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer fleet-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "correct" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "fleet-token",
			"user":  map[string]any{"id": "u1", "email": creds.Email},
		})
	})
	r.Get("/api/auth/me", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "name": "Ada", "roleIds": []string{"r1"}})
	}))
	r.Get("/api/roles", requireToken(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("permissions"))
		writeJSON(w, http.StatusOK, map[string]any{"roles": []map[string]any{
			{"id": "r1", "name": "operator", "permissions": []string{"egg:read", "egg:*"}},
		}})
	}))
	r.Get("/api/roles/{id}", requireToken(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "r1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "no such role"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "r1", "name": "operator"})
	}))
	r.Post("/api/roles", requireToken(func(w http.ResponseWriter, r *http.Request) {
		var input upstream.RoleInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		if input.Name == "operator" {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "role exists"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": "r2", "name": input.Name, "permissions": input.Permissions})
	}))
	r.Delete("/api/roles/{id}", requireToken(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	r.Get("/api/permissions", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"permissions": []map[string]string{
			{"name": "egg:read", "description": "view container templates"},
		}})
	}))
	r.Get("/api/eggs", requireToken(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"eggs": []map[string]any{
			{"id": "e1", "name": "redis", "dockerImage": "redis:7"},
		}})
	}))
	r.Put("/api/users/{id}/roles", requireToken(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			RoleIDs []string `json:"roleIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		writeJSON(w, http.StatusOK, map[string]any{"id": chi.URLParam(r, "id"), "roleIds": payload.RoleIDs})
	}))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginReturnsTokenAndUser(t *testing.T) {
	srv := fakeFleet(t)
	client := upstream.NewClient(srv.URL, time.Second, nil)

	result, err := client.Login(context.Background(), "ada@test.local", "correct")
	require.NoError(t, err)
	assert.Equal(t, "fleet-token", result.Token)
	assert.Equal(t, "u1", result.User.ID)
}

func TestLoginMapsUnauthorized(t *testing.T) {
	srv := fakeFleet(t)
	client := upstream.NewClient(srv.URL, time.Second, nil)

	_, err := client.Login(context.Background(), "ada@test.local", "wrong")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestCurrentUserSendsBearerToken(t *testing.T) {
	srv := fakeFleet(t)
	client := upstream.NewClient(srv.URL, time.Second, nil)

	user, err := client.CurrentUser(context.Background(), "fleet-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, []string{"r1"}, user.RoleIDs)

	_, err = client.CurrentUser(context.Background(), "bogus")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestListRolesWithPermissions(t *testing.T) {
	srv := fakeFleet(t)
	client := upstream.NewClient(srv.URL, time.Second, nil)

	roles, err := client.ListRolesWithPermissions(context.Background(), "fleet-token")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "operator", roles[0].Name)
	assert.Contains(t, roles[0].Permissions, "egg:*")
}

func TestCreateRoleMapsConflict(t *testing.T) {
	srv := fakeFleet(t)
	client := upstream.NewClient(srv.URL, time.Second, nil)

	_, err := client.CreateRole(context.Background(), "fleet-token", upstream.RoleInput{Name: "operator"})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	role, err := client.CreateRole(context.Background(), "fleet-token", upstream.RoleInput{Name: "viewer", Permissions: []string{"egg:read"}})
	require.NoError(t, err)
	assert.Equal(t, "r2", role.ID)
}

func TestGetRoleMapsNotFound(t *testing.T) {
	srv := fakeFleet(t)
	client := upstream.NewClient(srv.URL, time.Second, nil)

	_, err := client.GetRole(context.Background(), "fleet-token", "missing")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSetUserRolesRoundTrip(t *testing.T) {
	srv := fakeFleet(t)
	client := upstream.NewClient(srv.URL, time.Second, nil)

	user, err := client.SetUserRoles(context.Background(), "fleet-token", "u1", []string{"r1", "r2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, user.RoleIDs)
}

func TestMalformedResponseIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Role without the required id field.
		_, _ = w.Write([]byte(`{"roles":[{"name":"broken"}]}`))
	}))
	t.Cleanup(srv.Close)
	client := upstream.NewClient(srv.URL, time.Second, nil)

	_, err := client.ListRolesWithPermissions(context.Background(), "fleet-token")
	assert.ErrorIs(t, err, httpx.ErrUpstream)
}

func TestUnreachableUpstreamIsUpstreamError(t *testing.T) {
	client := upstream.NewClient("http://127.0.0.1:0", 200*time.Millisecond, nil)

	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, httpx.ErrUpstream)
}

type captureRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (c *captureRecorder) ObserveUpstream(operation string, _ time.Duration, _ error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, operation)
}

func TestRecorderObservesCalls(t *testing.T) {
	srv := fakeFleet(t)
	recorder := &captureRecorder{}
	client := upstream.NewClient(srv.URL, time.Second, recorder)

	require.NoError(t, client.Ping(context.Background()))
	_, err := client.ListEggs(context.Background(), "fleet-token")
	require.NoError(t, err)

	assert.Equal(t, []string{"ping", "list_eggs"}, recorder.ops)
}

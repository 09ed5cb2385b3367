package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
)

type fakeDirectory struct {
	mu         sync.Mutex
	user       User
	userErr    error
	roles      []Role
	rolesErr   error
	userCalls  int
	rolesCalls int

	listRolesFn func(ctx context.Context, token string) ([]Role, error)
}

func (f *fakeDirectory) CurrentUser(ctx context.Context, token string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	if f.userErr != nil {
		return User{}, f.userErr
	}
	return f.user, nil
}

func (f *fakeDirectory) ListRolesWithPermissions(ctx context.Context, token string) ([]Role, error) {
	f.mu.Lock()
	fn := f.listRolesFn
	f.rolesCalls++
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, token)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rolesErr != nil {
		return nil, f.rolesErr
	}
	return f.roles, nil
}

func (f *fakeDirectory) set(user User, roles []Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = user
	f.roles = roles
}

func (f *fakeDirectory) setRolesErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rolesErr = err
}

func newTestStore(dir Directory) *Store {
	return NewStore(dir, nil, "token", time.Minute)
}

func TestStoreEmptyDeniesEverything(t *testing.T) {
	store := newTestStore(&fakeDirectory{})
	eval := store.Evaluator()

	assert.False(t, eval.HasPermission("dashboard:read"))
	assert.False(t, eval.HasPermission("egg:read"))
	assert.True(t, store.Loading())
}

func TestStoreLoadAndRefresh(t *testing.T) {
	dir := &fakeDirectory{}
	dir.set(
		User{ID: "u1", Name: "Alice", RoleIDs: []string{"r1"}},
		[]Role{{ID: "r1", Name: "Operator", Permissions: []string{"egg:read", "container:*"}}},
	)
	store := newTestStore(dir)

	require.NoError(t, store.Load(context.Background(), nil))
	require.NoError(t, store.RefreshRoles(context.Background()))

	eval := store.Evaluator()
	assert.True(t, eval.HasPermission("egg:read"))
	assert.True(t, eval.HasPermission("container:start"))
	assert.True(t, eval.HasPermission("dashboard:read"))
	assert.Equal(t, []string{"Operator"}, eval.UserRoles())
	assert.False(t, store.Loading())
}

func TestStoreLoadFallsBackToClaims(t *testing.T) {
	dir := &fakeDirectory{userErr: errors.New("boom")}
	dir.set(User{}, []Role{{ID: "r1", Name: "Operator", Permissions: []string{"egg:read"}}})
	store := newTestStore(dir)

	fallback := &User{ID: "u1", Name: "Claims User", RoleIDs: []string{"r1"}}
	err := store.Load(context.Background(), fallback)
	require.Error(t, err)

	// The store is degraded but serviceable: the claims-derived user
	// is in place and role resolution still works.
	require.NoError(t, store.RefreshRoles(context.Background()))
	eval := store.Evaluator()
	assert.True(t, eval.Authenticated())
	assert.True(t, eval.HasPermission("dashboard:read"))
	assert.True(t, eval.HasPermission("egg:read"))
}

func TestStoreRefreshFailureKeepsCache(t *testing.T) {
	dir := &fakeDirectory{}
	dir.set(
		User{ID: "u1", RoleIDs: []string{"r1"}},
		[]Role{{ID: "r1", Name: "Operator", Permissions: []string{"egg:read"}}},
	)
	store := newTestStore(dir)
	require.NoError(t, store.Load(context.Background(), nil))
	require.NoError(t, store.RefreshRoles(context.Background()))

	dir.setRolesErr(errors.New("upstream down"))
	err := store.RefreshRoles(context.Background())
	require.Error(t, err)

	// Stale-but-valid data keeps serving queries.
	assert.True(t, store.Evaluator().HasPermission("egg:read"))
}

func TestStoreRefreshIdempotent(t *testing.T) {
	dir := &fakeDirectory{}
	dir.set(
		User{ID: "u1", RoleIDs: []string{"r1"}},
		[]Role{{ID: "r1", Name: "Operator", Permissions: []string{"egg:read", "egg:create"}}},
	)
	store := newTestStore(dir)
	require.NoError(t, store.Load(context.Background(), nil))

	require.NoError(t, store.RefreshRoles(context.Background()))
	first := store.Evaluator().Permissions()
	require.NoError(t, store.RefreshRoles(context.Background()))
	second := store.Evaluator().Permissions()

	assert.Equal(t, first, second)
}

func TestStoreStaleRefreshDiscarded(t *testing.T) {
	// Two overlapping refreshes: the one that started first resolves
	// last with outdated data. Its response must not clobber the
	// fresher collection.
	dir := &fakeDirectory{}
	dir.set(User{ID: "u1", RoleIDs: []string{"r1"}}, nil)
	store := newTestStore(dir)
	require.NoError(t, store.Load(context.Background(), nil))

	release := make(chan struct{})
	started := make(chan struct{})
	call := 0
	dir.listRolesFn = func(ctx context.Context, token string) ([]Role, error) {
		dir.mu.Lock()
		call++
		current := call
		dir.mu.Unlock()
		if current == 1 {
			close(started)
			<-release
			return []Role{{ID: "r1", Name: "Old", Permissions: []string{"egg:read"}}}, nil
		}
		return []Role{{ID: "r1", Name: "Fresh", Permissions: []string{"egg:read", "egg:delete"}}}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- store.RefreshRoles(context.Background())
	}()
	<-started

	// Fresher refresh starts and completes while the first hangs.
	require.NoError(t, store.RefreshRoles(context.Background()))
	require.True(t, store.Evaluator().HasPermission("egg:delete"))

	close(release)
	require.NoError(t, <-done)

	// The stale response was discarded.
	eval := store.Evaluator()
	assert.True(t, eval.HasPermission("egg:delete"))
	assert.Equal(t, []string{"Fresh"}, eval.UserRoles())
}

func TestStoreClearDiscardsEverything(t *testing.T) {
	dir := &fakeDirectory{}
	dir.set(
		User{ID: "u1", RoleIDs: []string{"r1"}},
		[]Role{{ID: "r1", Name: "Operator", Permissions: []string{"egg:read"}}},
	)
	store := newTestStore(dir)
	require.NoError(t, store.Load(context.Background(), nil))
	require.NoError(t, store.RefreshRoles(context.Background()))
	require.True(t, store.Evaluator().HasPermission("egg:read"))

	store.Clear()

	eval := store.Evaluator()
	assert.False(t, eval.HasPermission("egg:read"))
	assert.False(t, eval.HasPermission("dashboard:read"))
	assert.True(t, store.Loading())
}

func TestStorePrime(t *testing.T) {
	dir := &fakeDirectory{}
	dir.set(
		User{ID: "u1", RoleIDs: []string{"r1"}},
		[]Role{{ID: "r1", Name: "Operator", Permissions: []string{"egg:read"}}},
	)
	store := NewStore(dir, nil, "token", time.Hour)

	store.Prime(context.Background(), nil)
	assert.True(t, store.Evaluator().HasPermission("egg:read"))

	// Within the TTL a second prime does not re-fetch.
	before := dir.rolesCalls
	store.Prime(context.Background(), nil)
	assert.Equal(t, before, dir.rolesCalls)
}

func TestStorePrimeReportsRevokedToken(t *testing.T) {
	dir := &fakeDirectory{userErr: httpx.ErrUnauthorized, rolesErr: httpx.ErrUnauthorized}
	store := NewStore(dir, nil, "token", time.Hour)

	err := store.Prime(context.Background(), &User{ID: "u1"})
	require.ErrorIs(t, err, httpx.ErrUnauthorized)

	// The fallback user is still established; callers decide whether
	// the revoked token ends the session.
	assert.True(t, store.Evaluator().HasPermission("dashboard:read"))
}

func TestRegistryPerSessionStores(t *testing.T) {
	dir := &fakeDirectory{}
	registry := NewRegistry(dir, nil, time.Minute, time.Hour)

	a := registry.Store("sess-a", "tok-a")
	b := registry.Store("sess-b", "tok-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, registry.Store("sess-a", "tok-a"))

	// A re-established session (new token) gets a fresh store.
	assert.NotSame(t, a, registry.Store("sess-a", "tok-other"))

	registry.Drop("sess-b")
	assert.Equal(t, 1, registry.Len())
}

func TestRegistrySweepEvictsIdle(t *testing.T) {
	dir := &fakeDirectory{}
	registry := NewRegistry(dir, nil, time.Minute, time.Minute)

	registry.Store("sess-a", "tok-a")
	assert.Equal(t, 0, registry.Sweep(time.Now()))
	assert.Equal(t, 1, registry.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, registry.Len())
}

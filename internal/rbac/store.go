package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Directory is the remote collaborator the store loads user and role
// data from. Implemented by the upstream API client.
type Directory interface {
	CurrentUser(ctx context.Context, token string) (User, error)
	ListRolesWithPermissions(ctx context.Context, token string) ([]Role, error)
}

// Store caches the authenticated user's record and the role collection
// for one session and derives the effective permission set from them.
// The set is rebuilt from source data on every change, never mutated
// in place. Each fetch carries a generation number so a slow stale
// response cannot clobber the result of a fresher one.
type Store struct {
	mu     sync.Mutex
	dir    Directory
	logger *slog.Logger

	token    string
	rolesTTL time.Duration

	user  *User
	roles map[string]Role
	eval  *Evaluator

	inflight  int
	userSeq   uint64
	rolesSeq  uint64
	refreshed time.Time
}

// NewStore constructs an empty store bound to a session token.
func NewStore(dir Directory, logger *slog.Logger, token string, rolesTTL time.Duration) *Store {
	return &Store{
		dir:      dir,
		logger:   logger,
		token:    token,
		rolesTTL: rolesTTL,
		eval:     newEvaluator(nil, nil),
	}
}

// Load fetches the current user record. On fetch failure the store
// degrades to the fallback record built from session claims rather
// than failing the caller's request; the error is still returned so
// callers can log it, but every caller treats it as non-fatal.
func (s *Store) Load(ctx context.Context, fallback *User) error {
	s.mu.Lock()
	s.userSeq++
	seq := s.userSeq
	s.inflight++
	token := s.token
	s.mu.Unlock()

	user, err := s.dir.CurrentUser(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if seq != s.userSeq {
		// A newer load started while this one was in flight.
		return nil
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("load current user, falling back to session claims", slog.Any("error", err))
		}
		if fallback != nil {
			s.user = fallback
			s.rebuild()
		}
		return fmt.Errorf("load current user: %w", err)
	}
	s.user = &user
	s.rebuild()
	return nil
}

// RefreshRoles fetches the full role collection. On failure the
// previously cached collection is left untouched so permission queries
// keep operating on stale-but-valid data.
func (s *Store) RefreshRoles(ctx context.Context) error {
	s.mu.Lock()
	s.rolesSeq++
	seq := s.rolesSeq
	s.inflight++
	token := s.token
	s.mu.Unlock()

	roles, err := s.dir.ListRolesWithPermissions(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if seq != s.rolesSeq {
		return nil
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("refresh roles, keeping cached collection", slog.Any("error", err))
		}
		return fmt.Errorf("refresh roles: %w", err)
	}
	byID := make(map[string]Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}
	s.roles = byID
	s.refreshed = time.Now()
	s.rebuild()
	return nil
}

// Prime makes the store ready to serve queries: the first call loads
// the user and role collection, later calls re-fetch roles once the
// cache TTL has elapsed. Fetch failures degrade to the fallback user
// and the last good role collection; the error is returned so callers
// can distinguish a revoked token from a transient outage.
func (s *Store) Prime(ctx context.Context, fallback *User) error {
	s.mu.Lock()
	hydrated := s.user != nil
	stale := s.rolesTTL > 0 && time.Since(s.refreshed) >= s.rolesTTL
	s.mu.Unlock()

	if !hydrated {
		loadErr := s.Load(ctx, fallback)
		if err := s.RefreshRoles(ctx); loadErr == nil {
			return err
		}
		return loadErr
	}
	if stale {
		return s.RefreshRoles(ctx)
	}
	return nil
}

// Loading reports whether a fetch is in flight or no user has been
// established yet.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user == nil || s.inflight > 0
}

// User returns a copy of the established user record, or nil.
func (s *Store) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	u.RoleIDs = append([]string(nil), s.user.RoleIDs...)
	return &u
}

// Evaluator returns the current immutable permission snapshot.
func (s *Store) Evaluator() *Evaluator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eval
}

// Clear discards all cached data; subsequent queries deny everything.
// Called when the session ends.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.roles = nil
	s.refreshed = time.Time{}
	s.userSeq++
	s.rolesSeq++
	s.rebuild()
}

// rebuild recomputes the effective permission set. Callers hold s.mu.
func (s *Store) rebuild() {
	s.eval = newEvaluator(s.user, s.roles)
}

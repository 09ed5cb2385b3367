package rbac

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry maintains one permission store per active session. Stores
// are created on first use, keyed by session ID, and evicted after a
// period without requests.
type Registry struct {
	mu      sync.Mutex
	dir     Directory
	logger  *slog.Logger
	entries map[string]*registryEntry

	rolesTTL time.Duration
	idleTTL  time.Duration
}

type registryEntry struct {
	store    *Store
	token    string
	lastSeen time.Time
}

// NewRegistry constructs a Registry.
func NewRegistry(dir Directory, logger *slog.Logger, rolesTTL, idleTTL time.Duration) *Registry {
	return &Registry{
		dir:      dir,
		logger:   logger,
		entries:  make(map[string]*registryEntry),
		rolesTTL: rolesTTL,
		idleTTL:  idleTTL,
	}
}

// Store returns the store for the session, creating it on first use.
// A changed token means the session was re-established; the old store
// is discarded so no data leaks across logins.
func (r *Registry) Store(sessionID, token string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if ok && entry.token == token {
		entry.lastSeen = time.Now()
		return entry.store
	}
	if ok {
		entry.store.Clear()
	}
	store := NewStore(r.dir, r.logger, token, r.rolesTTL)
	r.entries[sessionID] = &registryEntry{store: store, token: token, lastSeen: time.Now()}
	return store
}

// Drop clears and removes the session's store.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[sessionID]; ok {
		entry.store.Clear()
		delete(r.entries, sessionID)
	}
}

// Sweep evicts stores idle longer than the idle TTL and returns the
// number evicted.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, entry := range r.entries {
		if now.Sub(entry.lastSeen) >= r.idleTTL {
			entry.store.Clear()
			delete(r.entries, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps periodically until the context is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 && r.logger != nil {
				r.logger.Debug("evicted idle permission stores", slog.Int("count", n))
			}
		}
	}
}

// Len reports the number of active stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

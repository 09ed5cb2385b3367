package rbac

import (
	"sort"
	"strings"
)

// Evaluator answers membership queries over an effective permission
// set. It is an immutable projection of a store snapshot: queries are
// pure, perform no I/O and never fail — absence of data degrades to
// "permission denied".
type Evaluator struct {
	authenticated bool
	perms         map[string]struct{}
	roleNames     []string
}

// newEvaluator derives the effective permission set for a user from
// the loaded role collection: the default grants plus the permissions
// of every assigned role found in the collection. Assignments that
// reference unloaded roles are skipped.
func newEvaluator(user *User, roles map[string]Role) *Evaluator {
	if user == nil {
		return &Evaluator{}
	}
	perms := make(map[string]struct{})
	for _, p := range defaultGrants() {
		perms[p] = struct{}{}
	}
	names := make([]string, 0, len(user.RoleIDs))
	for _, id := range user.RoleIDs {
		role, ok := roles[id]
		if !ok {
			continue
		}
		names = append(names, role.Name)
		for _, p := range role.Permissions {
			perms[p] = struct{}{}
		}
	}
	return &Evaluator{authenticated: true, perms: perms, roleNames: names}
}

// HasPermission reports whether the permission is granted, either
// exactly or through a resource:* wildcard. The wildcard fallback
// applies only to queries with exactly two colon-delimited segments;
// any other shape is matched exactly or not at all.
func (e *Evaluator) HasPermission(p string) bool {
	if e == nil || !e.authenticated {
		return false
	}
	if _, ok := e.perms[p]; ok {
		return true
	}
	if i := strings.IndexByte(p, ':'); i >= 0 && strings.IndexByte(p[i+1:], ':') < 0 {
		_, ok := e.perms[p[:i]+":*"]
		return ok
	}
	return false
}

// HasAnyPermission reports whether at least one of the given
// permissions is granted. An empty list is never satisfied.
func (e *Evaluator) HasAnyPermission(perms []string) bool {
	for _, p := range perms {
		if e.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every given permission is granted.
// An empty list is vacuously satisfied.
func (e *Evaluator) HasAllPermissions(perms []string) bool {
	for _, p := range perms {
		if !e.HasPermission(p) {
			return false
		}
	}
	return true
}

// Authenticated reports whether a user was loaded into this snapshot.
func (e *Evaluator) Authenticated() bool {
	return e != nil && e.authenticated
}

// UserRoles returns the names of the user's resolved roles.
func (e *Evaluator) UserRoles() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.roleNames...)
}

// Permissions returns the effective permission set in sorted order.
func (e *Evaluator) Permissions() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.perms))
	for p := range e.perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

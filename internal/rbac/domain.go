package rbac

import (
	"time"

	"github.com/code-ga/container-dashboard/internal/shared"
)

// Role is a named bundle of permission strings assignable to users.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User describes the authenticated actor and its role assignments.
// RoleIDs may reference roles not present in the loaded collection;
// such assignments are skipped during evaluation.
type User struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	Image         string
	RoleIDs       []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Dashboard permissions. Permission strings are colon-delimited
// resource:action tokens; resource:* grants every action on the
// resource.
const (
	PermDashboardRead = "dashboard:read"

	PermEggRead   = "egg:read"
	PermEggCreate = "egg:create"
	PermEggUpdate = "egg:update"
	PermEggDelete = "egg:delete"

	PermRoleRead   = "role:read"
	PermRoleCreate = "role:create"
	PermRoleUpdate = "role:update"
	PermRoleDelete = "role:delete"

	PermUserRead   = "user:read"
	PermUserUpdate = "user:update"
	PermUserDelete = "user:delete"

	PermPermissionRead = "permission:read"
)

// defaultGrants lists permissions every authenticated user holds
// regardless of role assignments.
func defaultGrants() []string {
	return []string{PermDashboardRead}
}

// UserFromIdentity builds the degraded user record used when the
// current-user fetch fails and only session claims are available.
func UserFromIdentity(id *shared.Identity) *User {
	if id == nil {
		return nil
	}
	return &User{
		ID:            id.ID,
		Name:          id.Name,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		Image:         id.Image,
		RoleIDs:       append([]string(nil), id.RoleIDs...),
		CreatedAt:     id.CreatedAt,
		UpdatedAt:     id.UpdatedAt,
	}
}

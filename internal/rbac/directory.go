package rbac

import (
	"context"

	"github.com/code-ga/container-dashboard/internal/upstream"
)

// apiDirectory adapts the upstream client to the Directory contract.
type apiDirectory struct {
	client *upstream.Client
}

// NewDirectory wraps the fleet API client as a Directory.
func NewDirectory(client *upstream.Client) Directory {
	return apiDirectory{client: client}
}

func (d apiDirectory) CurrentUser(ctx context.Context, token string) (User, error) {
	u, err := d.client.CurrentUser(ctx, token)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
		RoleIDs:       u.RoleIDs,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}, nil
}

func (d apiDirectory) ListRolesWithPermissions(ctx context.Context, token string) ([]Role, error) {
	rows, err := d.client.ListRolesWithPermissions(ctx, token)
	if err != nil {
		return nil, err
	}
	roles := make([]Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, Role{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			Permissions: row.Permissions,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return roles, nil
}

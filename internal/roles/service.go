package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/upstream"
)

// ClientPort defines the fleet API calls the role module consumes.
type ClientPort interface {
	ListRolesWithPermissions(ctx context.Context, token string) ([]upstream.Role, error)
	GetRole(ctx context.Context, token, id string) (upstream.Role, error)
	CreateRole(ctx context.Context, token string, input upstream.RoleInput) (upstream.Role, error)
	UpdateRole(ctx context.Context, token, id string, input upstream.RoleInput) (upstream.Role, error)
	DeleteRole(ctx context.Context, token, id string) error
}

// Service handles role business logic.
type Service struct {
	client ClientPort
}

// NewService builds Service instance.
func NewService(client ClientPort) *Service {
	return &Service{client: client}
}

// Input carries fields for role create/update.
type Input struct {
	Name        string
	Description string
	Permissions []string
}

// ListRoles returns all roles with their permissions.
func (s *Service) ListRoles(ctx context.Context, token string) ([]Role, error) {
	rows, err := s.client.ListRolesWithPermissions(ctx, token)
	if err != nil {
		return nil, err
	}
	out := make([]Role, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, token, id string) (Role, error) {
	row, err := s.client.GetRole(ctx, token, id)
	if err != nil {
		return Role{}, err
	}
	return toDomain(row), nil
}

// CreateRole creates a new role.
func (s *Service) CreateRole(ctx context.Context, token string, input Input) (Role, error) {
	normalized, err := normalizeInput(input)
	if err != nil {
		return Role{}, err
	}
	row, err := s.client.CreateRole(ctx, token, normalized)
	if err != nil {
		return Role{}, err
	}
	return toDomain(row), nil
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, token, id string, input Input) (Role, error) {
	normalized, err := normalizeInput(input)
	if err != nil {
		return Role{}, err
	}
	row, err := s.client.UpdateRole(ctx, token, id, normalized)
	if err != nil {
		return Role{}, err
	}
	return toDomain(row), nil
}

// DeleteRole removes a role by ID.
func (s *Service) DeleteRole(ctx context.Context, token, id string) error {
	return s.client.DeleteRole(ctx, token, id)
}

func normalizeInput(input Input) (upstream.RoleInput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return upstream.RoleInput{}, fmt.Errorf("%w: role name required", httpx.ErrValidation)
	}
	perms := make([]string, 0, len(input.Permissions))
	seen := make(map[string]struct{}, len(input.Permissions))
	for _, p := range input.Permissions {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, " \t") || !strings.Contains(p, ":") {
			return upstream.RoleInput{}, fmt.Errorf("%w: invalid permission %q", httpx.ErrValidation, p)
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	return upstream.RoleInput{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Permissions: perms,
	}, nil
}

func toDomain(row upstream.Role) Role {
	return Role{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Permissions: row.Permissions,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/upstream"
)

// ClientPort defines the fleet API calls the user module consumes.
type ClientPort interface {
	ListUsers(ctx context.Context, token string) ([]upstream.User, error)
	GetUser(ctx context.Context, token, id string) (upstream.User, error)
	UpdateUser(ctx context.Context, token, id string, input upstream.UserInput) (upstream.User, error)
	SetUserRoles(ctx context.Context, token, id string, roleIDs []string) (upstream.User, error)
	DeleteUser(ctx context.Context, token, id string) error
}

// Service handles user business logic.
type Service struct {
	client ClientPort
}

// NewService builds Service instance.
func NewService(client ClientPort) *Service {
	return &Service{client: client}
}

// ListUsers returns all user accounts.
func (s *Service) ListUsers(ctx context.Context, token string) ([]User, error) {
	rows, err := s.client.ListUsers(ctx, token)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, token, id string) (User, error) {
	row, err := s.client.GetUser(ctx, token, id)
	if err != nil {
		return User{}, err
	}
	return toDomain(row), nil
}

// UpdateUser updates a user's profile fields.
func (s *Service) UpdateUser(ctx context.Context, token, id string, input upstream.UserInput) (User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" && input.Email == "" && input.Image == "" {
		return User{}, fmt.Errorf("%w: nothing to update", httpx.ErrValidation)
	}
	row, err := s.client.UpdateUser(ctx, token, id, input)
	if err != nil {
		return User{}, err
	}
	return toDomain(row), nil
}

// SetRoles replaces a user's role assignments. Unknown role IDs are
// rejected by the fleet API, not here.
func (s *Service) SetRoles(ctx context.Context, token, id string, roleIDs []string) (User, error) {
	cleaned := make([]string, 0, len(roleIDs))
	seen := make(map[string]struct{}, len(roleIDs))
	for _, rid := range roleIDs {
		rid = strings.TrimSpace(rid)
		if rid == "" {
			continue
		}
		if _, ok := seen[rid]; ok {
			continue
		}
		seen[rid] = struct{}{}
		cleaned = append(cleaned, rid)
	}
	row, err := s.client.SetUserRoles(ctx, token, id, cleaned)
	if err != nil {
		return User{}, err
	}
	return toDomain(row), nil
}

// DeleteUser removes a user account.
func (s *Service) DeleteUser(ctx context.Context, token, id string) error {
	return s.client.DeleteUser(ctx, token, id)
}

func toDomain(row upstream.User) User {
	return User{
		ID:            row.ID,
		Name:          row.Name,
		Email:         row.Email,
		EmailVerified: row.EmailVerified,
		Image:         row.Image,
		RoleIDs:       row.RoleIDs,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

package eggs

import (
	"context"
	"fmt"
	"strings"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
	"github.com/code-ga/container-dashboard/internal/upstream"
)

// ClientPort defines the fleet API calls the egg module consumes.
type ClientPort interface {
	ListEggs(ctx context.Context, token string) ([]upstream.Egg, error)
	GetEgg(ctx context.Context, token, id string) (upstream.Egg, error)
	CreateEgg(ctx context.Context, token string, input upstream.EggInput) (upstream.Egg, error)
	UpdateEgg(ctx context.Context, token, id string, input upstream.EggInput) (upstream.Egg, error)
	DeleteEgg(ctx context.Context, token, id string) error
}

// Service handles egg business logic.
type Service struct {
	client ClientPort
}

// NewService builds Service instance.
func NewService(client ClientPort) *Service {
	return &Service{client: client}
}

// Input carries fields for egg create/update.
type Input struct {
	Name           string
	Description    string
	DockerImage    string
	StartupCommand string
	Env            map[string]string
}

// ListEggs returns all container templates.
func (s *Service) ListEggs(ctx context.Context, token string) ([]Egg, error) {
	rows, err := s.client.ListEggs(ctx, token)
	if err != nil {
		return nil, err
	}
	out := make([]Egg, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

// GetEgg fetches a container template by ID.
func (s *Service) GetEgg(ctx context.Context, token, id string) (Egg, error) {
	row, err := s.client.GetEgg(ctx, token, id)
	if err != nil {
		return Egg{}, err
	}
	return toDomain(row), nil
}

// CreateEgg creates a new container template.
func (s *Service) CreateEgg(ctx context.Context, token string, input Input) (Egg, error) {
	normalized, err := normalizeInput(input)
	if err != nil {
		return Egg{}, err
	}
	row, err := s.client.CreateEgg(ctx, token, normalized)
	if err != nil {
		return Egg{}, err
	}
	return toDomain(row), nil
}

// UpdateEgg updates an existing container template.
func (s *Service) UpdateEgg(ctx context.Context, token, id string, input Input) (Egg, error) {
	normalized, err := normalizeInput(input)
	if err != nil {
		return Egg{}, err
	}
	row, err := s.client.UpdateEgg(ctx, token, id, normalized)
	if err != nil {
		return Egg{}, err
	}
	return toDomain(row), nil
}

// DeleteEgg removes a container template.
func (s *Service) DeleteEgg(ctx context.Context, token, id string) error {
	return s.client.DeleteEgg(ctx, token, id)
}

func normalizeInput(input Input) (upstream.EggInput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return upstream.EggInput{}, fmt.Errorf("%w: egg name required", httpx.ErrValidation)
	}
	image := strings.TrimSpace(input.DockerImage)
	if image == "" {
		return upstream.EggInput{}, fmt.Errorf("%w: docker image required", httpx.ErrValidation)
	}
	env := make(map[string]string, len(input.Env))
	for k, v := range input.Env {
		k = strings.TrimSpace(k)
		if k == "" {
			return upstream.EggInput{}, fmt.Errorf("%w: empty environment variable name", httpx.ErrValidation)
		}
		env[k] = v
	}
	return upstream.EggInput{
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		DockerImage:    image,
		StartupCommand: strings.TrimSpace(input.StartupCommand),
		Env:            env,
	}, nil
}

func toDomain(row upstream.Egg) Egg {
	return Egg{
		ID:             row.ID,
		Name:           row.Name,
		Description:    row.Description,
		DockerImage:    row.DockerImage,
		StartupCommand: row.StartupCommand,
		Env:            row.Env,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

// Package upstream implements the typed REST client for the fleet
// manager API. Responses are decoded into validated structs so the
// rest of the gateway never handles loosely shaped data.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/code-ga/container-dashboard/internal/platform/httpx"
)

// Recorder observes upstream call outcomes. Implemented by the
// observability package; nil disables recording.
type Recorder interface {
	ObserveUpstream(operation string, duration time.Duration, err error)
}

// Client wraps interactions with the fleet manager API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	recorder   Recorder
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration, recorder Recorder) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		validate: validator.New(),
		recorder: recorder,
	}
}

// Ping checks if the fleet API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/api/health", "", nil, nil)
}

// Login exchanges credentials for an access token and user record.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", "", credentialsPayload{Email: email, Password: password}, &result)
	return result, err
}

// Logout invalidates the access token upstream.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/auth/logout", token, nil, nil)
}

// CurrentUser fetches the user record behind the given token.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	var user User
	err := c.do(ctx, "current_user", http.MethodGet, "/api/auth/me", token, nil, &user)
	return user, err
}

// ListRolesWithPermissions fetches the full role collection including
// each role's permission strings.
func (c *Client) ListRolesWithPermissions(ctx context.Context, token string) ([]Role, error) {
	var envelope rolesEnvelope
	if err := c.do(ctx, "list_roles", http.MethodGet, "/api/roles?permissions=true", token, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Roles, nil
}

// GetRole fetches a single role by ID.
func (c *Client) GetRole(ctx context.Context, token, id string) (Role, error) {
	var role Role
	err := c.do(ctx, "get_role", http.MethodGet, "/api/roles/"+id, token, nil, &role)
	return role, err
}

// CreateRole creates a new role.
func (c *Client) CreateRole(ctx context.Context, token string, input RoleInput) (Role, error) {
	var role Role
	err := c.do(ctx, "create_role", http.MethodPost, "/api/roles", token, input, &role)
	return role, err
}

// UpdateRole updates an existing role.
func (c *Client) UpdateRole(ctx context.Context, token, id string, input RoleInput) (Role, error) {
	var role Role
	err := c.do(ctx, "update_role", http.MethodPatch, "/api/roles/"+id, token, input, &role)
	return role, err
}

// DeleteRole removes a role.
func (c *Client) DeleteRole(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete_role", http.MethodDelete, "/api/roles/"+id, token, nil, nil)
}

// ListPermissions fetches the permission catalog.
func (c *Client) ListPermissions(ctx context.Context, token string) ([]Permission, error) {
	var envelope permissionsEnvelope
	if err := c.do(ctx, "list_permissions", http.MethodGet, "/api/permissions", token, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Permissions, nil
}

// ListUsers fetches all user accounts.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var envelope usersEnvelope
	if err := c.do(ctx, "list_users", http.MethodGet, "/api/users", token, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Users, nil
}

// GetUser fetches a single user by ID.
func (c *Client) GetUser(ctx context.Context, token, id string) (User, error) {
	var user User
	err := c.do(ctx, "get_user", http.MethodGet, "/api/users/"+id, token, nil, &user)
	return user, err
}

// UpdateUser updates a user's profile fields.
func (c *Client) UpdateUser(ctx context.Context, token, id string, input UserInput) (User, error) {
	var user User
	err := c.do(ctx, "update_user", http.MethodPatch, "/api/users/"+id, token, input, &user)
	return user, err
}

// SetUserRoles replaces a user's role assignments.
func (c *Client) SetUserRoles(ctx context.Context, token, id string, roleIDs []string) (User, error) {
	var user User
	err := c.do(ctx, "set_user_roles", http.MethodPut, "/api/users/"+id+"/roles", token, roleIDsPayload{RoleIDs: roleIDs}, &user)
	return user, err
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete_user", http.MethodDelete, "/api/users/"+id, token, nil, nil)
}

// ListEggs fetches all container templates.
func (c *Client) ListEggs(ctx context.Context, token string) ([]Egg, error) {
	var envelope eggsEnvelope
	if err := c.do(ctx, "list_eggs", http.MethodGet, "/api/eggs", token, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Eggs, nil
}

// GetEgg fetches a single container template.
func (c *Client) GetEgg(ctx context.Context, token, id string) (Egg, error) {
	var egg Egg
	err := c.do(ctx, "get_egg", http.MethodGet, "/api/eggs/"+id, token, nil, &egg)
	return egg, err
}

// CreateEgg creates a new container template.
func (c *Client) CreateEgg(ctx context.Context, token string, input EggInput) (Egg, error) {
	var egg Egg
	err := c.do(ctx, "create_egg", http.MethodPost, "/api/eggs", token, input, &egg)
	return egg, err
}

// UpdateEgg updates an existing container template.
func (c *Client) UpdateEgg(ctx context.Context, token, id string, input EggInput) (Egg, error) {
	var egg Egg
	err := c.do(ctx, "update_egg", http.MethodPatch, "/api/eggs/"+id, token, input, &egg)
	return egg, err
}

// DeleteEgg removes a container template.
func (c *Client) DeleteEgg(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete_egg", http.MethodDelete, "/api/eggs/"+id, token, nil, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path, token string, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, token, body, out)
	if c.recorder != nil {
		c.recorder.ObserveUpstream(operation, time.Since(start), err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", httpx.ErrUpstream, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", httpx.ErrUpstream, err)
	}
	return nil
}

type upstreamProblem struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func statusError(resp *http.Response) error {
	var problem upstreamProblem
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&problem)
	message := problem.Message
	if message == "" {
		message = problem.Error
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return httpx.ErrUnauthorized
	case http.StatusForbidden:
		return httpx.ErrForbidden
	case http.StatusNotFound:
		return httpx.ErrNotFound
	case http.StatusConflict:
		return httpx.ErrDuplicate
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if message != "" {
			return fmt.Errorf("%w: %s", httpx.ErrValidation, message)
		}
		return httpx.ErrValidation
	default:
		return fmt.Errorf("%w: status %d", httpx.ErrUpstream, resp.StatusCode)
	}
}

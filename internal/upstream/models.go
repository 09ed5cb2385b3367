package upstream

import "time"

// User is the fleet API's user record.
type User struct {
	ID            string    `json:"id" validate:"required"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         string    `json:"image,omitempty"`
	RoleIDs       []string  `json:"roleIds"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Role is a named bundle of permission strings assignable to users.
type Role struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Permission is a catalog entry describing a grantable capability.
type Permission struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// Egg is a container template managed by the fleet API.
type Egg struct {
	ID             string            `json:"id" validate:"required"`
	Name           string            `json:"name" validate:"required"`
	Description    string            `json:"description,omitempty"`
	DockerImage    string            `json:"dockerImage"`
	StartupCommand string            `json:"startupCommand,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// LoginResult is the fleet API's response to a successful login.
type LoginResult struct {
	Token string `json:"token" validate:"required"`
	User  User   `json:"user" validate:"required"`
}

// RoleInput carries fields for role create/update calls.
type RoleInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// EggInput carries fields for egg create/update calls.
type EggInput struct {
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	DockerImage    string            `json:"dockerImage"`
	StartupCommand string            `json:"startupCommand,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
}

// UserInput carries fields for user update calls.
type UserInput struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

type rolesEnvelope struct {
	Roles []Role `json:"roles" validate:"dive"`
}

type usersEnvelope struct {
	Users []User `json:"users" validate:"dive"`
}

type eggsEnvelope struct {
	Eggs []Egg `json:"eggs" validate:"dive"`
}

type permissionsEnvelope struct {
	Permissions []Permission `json:"permissions" validate:"dive"`
}

type roleIDsPayload struct {
	RoleIDs []string `json:"roleIds"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Package eggs manages container templates ("eggs") through the fleet
// API.
package eggs

import "time"

// Egg is a container template: the image, startup command and default
// environment a container is provisioned from.
type Egg struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	DockerImage    string            `json:"dockerImage"`
	StartupCommand string            `json:"startupCommand,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

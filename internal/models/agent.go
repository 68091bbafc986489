package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentStatus is the persisted lifecycle status of a trading agent.
// The runtime registry is the source of truth for liveness; "active"
// must hold exactly when a live execution context exists.
type AgentStatus string

const (
	AgentInactive AgentStatus = "inactive"
	AgentActive   AgentStatus = "active"
	AgentPaused   AgentStatus = "paused"
	AgentError    AgentStatus = "error"
)

type Agent struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"userId"`
	Name      string            `json:"name"`
	Status    AgentStatus       `json:"status"`
	Settings  map[string]string `json:"settings,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

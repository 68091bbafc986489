package models

import (
	"time"

	"github.com/google/uuid"
)

// Opportunity is an ephemeral scan result. It is never mutated after
// creation; re-scanning supersedes old rows rather than updating them.
type Opportunity struct {
	ID          uuid.UUID         `json:"id"`
	AgentID     uuid.UUID         `json:"agentId"`
	Symbol      string            `json:"symbol"`
	Score       float64           `json:"score"`
	Description string            `json:"description"`
	Criteria    map[string]string `json:"criteria"`
	DetectedAt  time.Time         `json:"detectedAt"`
}

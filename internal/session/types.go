package session

import (
	"time"

	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/persona"
)

// CreateRequest defines payload for creating a new session.
type CreateRequest struct {
	Persona string `json:"persona"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string      `json:"session_id"`
	Status          Status      `json:"status"`
	Persona         persona.Tag `json:"persona"`
	Mode            brain.Mode  `json:"mode"`
	StartedAt       time.Time   `json:"started_at"`
	LastActivityAt  time.Time   `json:"last_activity_at"`
	InactivityTTLMS int64       `json:"inactivity_ttl_ms"`
}

// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadscore_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// LeadScored is published after a recomputation commits. Downstream
// consumers (routing, forecasting) must be idempotent on ScoreID: delivery
// through the outbox is at-least-once.
type LeadScored struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Score          float64   `json:"score"`
	Confidence     float64   `json:"confidence"`
	ScoreID        uuid.UUID `json:"scoreId"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e LeadScored) EventName() string { return "lead.scored" }

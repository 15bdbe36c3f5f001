package events

import (
	"time"

	"github.com/spec-kit/gatekeeper/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened  EventType = "ticket_opened"
	EventTicketDecided EventType = "ticket_decided"
	EventTicketClosed  EventType = "ticket_closed"
)

// Event represents a ticket lifecycle event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ChannelID string      `json:"channel_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	RequesterID string          `json:"requester_id"`
	Category    domain.Category `json:"category"`
	Number      int             `json:"number"`
}

// TicketDecidedPayload payload. Carries the full record so the decision
// logger needs no registry access.
type TicketDecidedPayload struct {
	Record domain.DecisionRecord `json:"record"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	RequesterID string          `json:"requester_id"`
	Category    domain.Category `json:"category"`
	Deleted     bool            `json:"deleted"`
}

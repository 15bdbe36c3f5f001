package domain

import "time"

// Category enumerates the kinds of entry requests an arrival can file.
type Category string

const (
	CategoryResident Category = "RESIDENT"
	CategoryVisitor  Category = "VISITOR"
	CategoryEmbassy  Category = "EMERGENCY_EMBASSY"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryResident, CategoryVisitor, CategoryEmbassy:
		return true
	}
	return false
}

// ChannelPrefix is the prefix used for ticket channel names.
func (c Category) ChannelPrefix() string {
	switch c {
	case CategoryResident:
		return "resident"
	case CategoryVisitor:
		return "visitor"
	case CategoryEmbassy:
		return "embassy"
	}
	return "ticket"
}

// Label is the human-readable request title.
func (c Category) Label() string {
	switch c {
	case CategoryResident:
		return "Resident Verification Request"
	case CategoryVisitor:
		return "Visitor Verification Request"
	case CategoryEmbassy:
		return "Emergency Embassy Request"
	}
	return "Verification Request"
}

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen    TicketState = "OPEN"
	TicketStateDecided TicketState = "DECIDED"
	TicketStateClosed  TicketState = "CLOSED"
)

// Outcome enumerates terminal decisions.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeDenied   Outcome = "DENIED"
)

// Ticket is the aggregate for one verification request. The ticket channel
// id doubles as its primary key: at most one open ticket per channel.
type Ticket struct {
	ChannelID     string
	Number        int
	RequesterID   string
	RequesterName string
	Category      Category
	State         TicketState
	Decision      *Decision
	CreatedAt     time.Time
}

// Decision captures the terminal review of a ticket. Justification is
// reviewer-internal and never shown to the requester.
type Decision struct {
	DeciderID     string
	Outcome       Outcome
	Justification string
	DecidedAt     time.Time
}

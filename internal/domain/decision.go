package domain

import "time"

// DecisionRecord is the immutable log entry written once per ticket at
// decision time. It is never updated or deleted.
type DecisionRecord struct {
	ID            string
	ChannelID     string
	RequesterID   string
	RequesterName string
	Category      Category
	DeciderID     string
	Outcome       Outcome
	Justification string
	DecidedAt     time.Time
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gatekeeper/internal/observability"
	"github.com/spec-kit/gatekeeper/internal/settings"
)

// StatusHandler exposes flow counters and configuration completeness for
// operators. Concrete ids are not included.
type StatusHandler struct {
	metrics  *observability.Metrics
	settings *settings.Store
}

// NewStatusHandler returns a new handler instance.
func NewStatusHandler(metrics *observability.Metrics, store *settings.Store) *StatusHandler {
	return &StatusHandler{metrics: metrics, settings: store}
}

// Status handles GET /status.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	doc := h.settings.Get()
	return c.JSON(fiber.Map{
		"metrics": h.metrics.Snapshot(),
		"configured": fiber.Map{
			"entry_channel":        doc.EntryChannelID != "",
			"ticket_category":      doc.TicketCategoryID != "",
			"log_channel":          doc.LogChannelID != "",
			"resident_role":        doc.Roles.Resident != "",
			"visitor_role":         doc.Roles.Visitor != "",
			"border_authority":     doc.Roles.BorderAuthority != "",
			"foreign_minister":     doc.Roles.ForeignMinister != "",
			"head_of_state":        doc.Roles.HeadOfState != "",
			"deputy_head_of_state": doc.Roles.DeputyHeadOfState != "",
			"oversight":            doc.Roles.Oversight != "",
		},
		"ticket_counter": doc.TicketCounter,
	})
}

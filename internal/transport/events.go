package transport

import "github.com/spec-kit/gatekeeper/internal/domain"

// Selection ids embedded in the welcome prompt buttons. They encode the
// target category directly so interactions stay actionable across process
// restarts with no server-side session state.
const (
	SelectionResident = "entry_resident"
	SelectionVisitor  = "entry_visitor"
	SelectionEmbassy  = "entry_embassy"
)

// CategoryForSelection decodes a button custom id into its category.
func CategoryForSelection(selectionID string) (domain.Category, bool) {
	switch selectionID {
	case SelectionResident:
		return domain.CategoryResident, true
	case SelectionVisitor:
		return domain.CategoryVisitor, true
	case SelectionEmbassy:
		return domain.CategoryEmbassy, true
	}
	return "", false
}

// SelectionEvent is an inbound button press.
type SelectionEvent struct {
	SelectionID string
	UserID      string
	UserName    string
}

// CommandEvent is an inbound command invocation. InvokerRoles and IsAdmin
// are supplied by the gateway, which is the authority on membership.
type CommandEvent struct {
	Name         string
	Args         map[string]string
	InvokerID    string
	InvokerName  string
	InvokerRoles []string
	IsAdmin      bool
	ChannelID    string
}

// Arg returns a command argument or the given fallback when absent.
func (e CommandEvent) Arg(name, fallback string) string {
	if v, ok := e.Args[name]; ok && v != "" {
		return v
	}
	return fallback
}

// Package interaction maps inbound gateway events (button presses,
// command invocations) onto service operations. Every routing decision is
// derived from the event itself, never from in-memory session state, so
// interactions stay valid across process restarts.
package interaction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/domain"
	"github.com/spec-kit/gatekeeper/internal/service"
	"github.com/spec-kit/gatekeeper/internal/settings"
	"github.com/spec-kit/gatekeeper/internal/transport"
	"github.com/spec-kit/gatekeeper/pkg/util"
)

// Router dispatches gateway events to the verification engine, the
// welcome publisher, and the settings store.
type Router struct {
	verification *service.VerificationService
	welcome      *service.WelcomeService
	settings     *settings.Store
	logger       *zap.Logger
}

// NewRouter constructs the router.
func NewRouter(verification *service.VerificationService, welcome *service.WelcomeService, store *settings.Store, logger *zap.Logger) *Router {
	return &Router{
		verification: verification,
		welcome:      welcome,
		settings:     store,
		logger:       logger,
	}
}

// HandleSelection processes a button press. The returned reply is
// delivered privately to the pressing user; it is never empty for a
// recognized selection.
func (r *Router) HandleSelection(ctx context.Context, ev transport.SelectionEvent) (string, error) {
	category, ok := transport.CategoryForSelection(ev.SelectionID)
	if !ok {
		// Not one of ours; other components may share the event stream.
		return "", nil
	}

	ticket, err := r.verification.Open(ctx, ev.UserID, ev.UserName, category)
	switch {
	case err == nil:
		return fmt.Sprintf("Your verification channel has been created: <#%s>\nPlease wait for a reviewer to process your request.", ticket.ChannelID), nil
	case util.IsCode(err, util.CodeDuplicateTicket):
		// Benign: no second channel, just point at the open one.
		if existing := util.Detail(err, "channel_id"); existing != "" {
			return fmt.Sprintf("You already have an open %s request: <#%s>", category.ChannelPrefix(), existing), nil
		}
		return fmt.Sprintf("You already have an open %s request.", category.ChannelPrefix()), nil
	case util.IsCode(err, util.CodeNotConfigured):
		return "The verification system is not fully configured yet. Please contact an administrator.", err
	case util.IsCode(err, util.CodeChannelCreateFailed):
		return "I couldn't create your verification channel. Please contact an administrator.", err
	default:
		return "Something went wrong processing your request.", err
	}
}

// HandleCommand processes a command invocation and returns the private
// reply for the invoker.
func (r *Router) HandleCommand(ctx context.Context, ev transport.CommandEvent) (string, error) {
	switch ev.Name {
	case "approve":
		return r.handleDecision(ctx, ev, domain.OutcomeApproved)
	case "deny":
		return r.handleDecision(ctx, ev, domain.OutcomeDenied)
	case "setup-roles":
		return r.handleSetupRoles(ctx, ev)
	case "setup-channel":
		return r.handleSetupChannels(ctx, ev)
	case "setup-message":
		return r.handleSetupMessage(ctx, ev)
	case "test-welcome":
		return r.handleTestWelcome(ev)
	case "publish-welcome":
		return r.handlePublishWelcome(ctx, ev)
	case "view-config":
		return r.handleViewConfig(ev)
	}
	return "", nil
}

func (r *Router) handleDecision(ctx context.Context, ev transport.CommandEvent, outcome domain.Outcome) (string, error) {
	reason := ev.Arg("reason", "No reason provided")

	ticket, err := r.verification.Decide(ctx, ev.ChannelID, ev.InvokerID, ev.InvokerRoles, ev.IsAdmin, outcome, reason)
	switch {
	case err == nil:
		verb := "Denial"
		if outcome == domain.OutcomeApproved {
			verb = "Approval"
		}
		return fmt.Sprintf("%s recorded for <@%s> (%s request #%d).", verb, ticket.RequesterID, ticket.Category.ChannelPrefix(), ticket.Number), nil
	case util.IsCode(err, util.CodeWrongChannel):
		return "This command can only be used in verification channels.", nil
	case util.IsCode(err, util.CodeNotAuthorized):
		return "You don't have permission to use this command.", nil
	case util.IsCode(err, util.CodeAlreadyDecided):
		return "This request has already been decided.", nil
	case util.IsCode(err, util.CodeNotConfigured):
		return "The verification system is not fully configured. Please contact an administrator.", err
	default:
		return "Something went wrong recording the decision.", err
	}
}

func (r *Router) handleSetupRoles(ctx context.Context, ev transport.CommandEvent) (string, error) {
	if !ev.IsAdmin {
		return "You don't have permission to use this command.", nil
	}

	var patch settings.RolePatch
	var updated []string
	assign := func(dst **string, arg, label string) {
		if v, ok := ev.Args[arg]; ok && v != "" {
			value := v
			*dst = &value
			updated = append(updated, fmt.Sprintf("%s: <@&%s>", label, v))
		}
	}
	assign(&patch.Resident, "resident", "Resident")
	assign(&patch.Visitor, "visitor", "Visitor")
	assign(&patch.BorderAuthority, "border_authority", "Border Authority")
	assign(&patch.ForeignMinister, "foreign_minister", "Foreign Affairs Minister")
	assign(&patch.HeadOfState, "head_of_state", "Head of State")
	assign(&patch.DeputyHeadOfState, "deputy_head_of_state", "Deputy Head of State")
	assign(&patch.Oversight, "oversight", "Oversight")

	if len(updated) == 0 {
		return "No roles were provided to update.", nil
	}
	if _, err := r.settings.SetRoles(ctx, patch); err != nil {
		return "Failed to save role configuration.", err
	}
	return "Roles updated:\n" + strings.Join(updated, "\n"), nil
}

func (r *Router) handleSetupChannels(ctx context.Context, ev transport.CommandEvent) (string, error) {
	if !ev.IsAdmin {
		return "You don't have permission to use this command.", nil
	}

	var patch settings.ChannelPatch
	var updated []string
	assign := func(dst **string, arg, label string) {
		if v, ok := ev.Args[arg]; ok && v != "" {
			value := v
			*dst = &value
			updated = append(updated, fmt.Sprintf("%s: <#%s>", label, v))
		}
	}
	assign(&patch.EntryChannel, "entry_channel", "Entry Channel")
	assign(&patch.TicketCategory, "ticket_category", "Ticket Category")
	assign(&patch.LogChannel, "log_channel", "Log Channel")

	if len(updated) == 0 {
		return "No channels were provided to update.", nil
	}
	if _, err := r.settings.SetChannels(ctx, patch); err != nil {
		return "Failed to save channel configuration.", err
	}
	return "Channels updated:\n" + strings.Join(updated, "\n"), nil
}

func (r *Router) handleSetupMessage(ctx context.Context, ev transport.CommandEvent) (string, error) {
	if !ev.IsAdmin {
		return "You don't have permission to use this command.", nil
	}

	title := ev.Arg("title", "")
	body := ev.Arg("body", "")
	if title == "" && body == "" {
		return "Provide a title and/or body to update the welcome message.", nil
	}
	doc, err := r.settings.SetMessage(ctx, title, body)
	if err != nil {
		return "Failed to save the welcome message.", err
	}
	return fmt.Sprintf("Welcome message updated.\n\n%s\n\n%s", doc.WelcomeTitle, doc.WelcomeBody), nil
}

func (r *Router) handleTestWelcome(ev transport.CommandEvent) (string, error) {
	if !ev.IsAdmin {
		return "You don't have permission to use this command.", nil
	}
	preview := r.welcome.Preview()
	return fmt.Sprintf("Test welcome message:\n\n%s\n\n%s", preview.Title, preview.Body), nil
}

func (r *Router) handlePublishWelcome(ctx context.Context, ev transport.CommandEvent) (string, error) {
	if !ev.IsAdmin {
		return "You don't have permission to use this command.", nil
	}
	if err := r.welcome.Publish(ctx, ""); err != nil {
		if util.IsCode(err, util.CodeNotConfigured) {
			return "The entry channel is not configured. Use /setup-channel first.", nil
		}
		return "Failed to post the welcome prompt.", err
	}
	return "Welcome prompt posted to the entry channel.", nil
}

func (r *Router) handleViewConfig(ev transport.CommandEvent) (string, error) {
	if !ev.IsAdmin {
		return "You don't have permission to use this command.", nil
	}

	doc := r.settings.Get()
	var b strings.Builder
	b.WriteString("Roles:\n")
	writeRoleLine(&b, "Resident", doc.Roles.Resident)
	writeRoleLine(&b, "Visitor", doc.Roles.Visitor)
	writeRoleLine(&b, "Border Authority", doc.Roles.BorderAuthority)
	writeRoleLine(&b, "Foreign Affairs Minister", doc.Roles.ForeignMinister)
	writeRoleLine(&b, "Head of State", doc.Roles.HeadOfState)
	writeRoleLine(&b, "Deputy Head of State", doc.Roles.DeputyHeadOfState)
	writeRoleLine(&b, "Oversight", doc.Roles.Oversight)
	b.WriteString("Channels:\n")
	writeChannelLine(&b, "Entry Channel", doc.EntryChannelID)
	writeChannelLine(&b, "Ticket Category", doc.TicketCategoryID)
	writeChannelLine(&b, "Log Channel", doc.LogChannelID)
	fmt.Fprintf(&b, "Ticket Counter: #%d", doc.TicketCounter)
	return b.String(), nil
}

func writeRoleLine(b *strings.Builder, label, id string) {
	if id == "" {
		fmt.Fprintf(b, "  %s: not set\n", label)
		return
	}
	fmt.Fprintf(b, "  %s: <@&%s>\n", label, id)
}

func writeChannelLine(b *strings.Builder, label, id string) {
	if id == "" {
		fmt.Fprintf(b, "  %s: not set\n", label)
		return
	}
	fmt.Fprintf(b, "  %s: <#%s>\n", label, id)
}

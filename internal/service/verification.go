package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/domain"
	"github.com/spec-kit/gatekeeper/internal/events"
	"github.com/spec-kit/gatekeeper/internal/observability"
	"github.com/spec-kit/gatekeeper/internal/settings"
	"github.com/spec-kit/gatekeeper/internal/transport"
	"github.com/spec-kit/gatekeeper/pkg/util"
)

// sideEffectTimeout bounds each gateway call made after a state
// transition has already been committed.
const sideEffectTimeout = 30 * time.Second

// openIndex entries point at the ticket channel; pendingChannel marks a
// reservation for a channel that is still being created.
const pendingChannel = "\x00pending"

// VerificationService is the ticket engine: it owns the registry of
// in-flight verification requests and drives each ticket from creation to
// terminal decision to teardown.
//
// All state transitions happen under a single mutex; gateway calls are
// issued outside it so a slow or failing external call never blocks
// unrelated tickets.
type VerificationService struct {
	gateway       transport.Gateway
	settings      *settings.Store
	dispatcher    events.Dispatcher
	scheduler     *Scheduler
	metrics       *observability.Metrics
	logger        *zap.Logger
	teardownDelay time.Duration

	mu        sync.Mutex
	tickets   map[string]*domain.Ticket // by channel id
	openIndex map[string]string         // requester|category -> channel id
}

// VerificationDependencies bundles collaborators for the engine.
type VerificationDependencies struct {
	Gateway       transport.Gateway
	Settings      *settings.Store
	Dispatcher    events.Dispatcher
	Scheduler     *Scheduler
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	TeardownDelay time.Duration
}

// NewVerificationService constructs the engine.
func NewVerificationService(deps VerificationDependencies) *VerificationService {
	delay := deps.TeardownDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}
	return &VerificationService{
		gateway:       deps.Gateway,
		settings:      deps.Settings,
		dispatcher:    deps.Dispatcher,
		scheduler:     deps.Scheduler,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		teardownDelay: delay,
		tickets:       make(map[string]*domain.Ticket),
		openIndex:     make(map[string]string),
	}
}

// Open files a new verification request: it validates configuration for
// the category, creates the isolated ticket channel, posts routing context
// for the reviewers, and registers the ticket as Open.
//
// At most one open ticket exists per (requester, category); a duplicate
// request fails with DUPLICATE_TICKET carrying the existing channel id and
// creates no second channel.
func (s *VerificationService) Open(ctx context.Context, requesterID, requesterName string, category domain.Category) (domain.Ticket, error) {
	if !category.Valid() {
		return domain.Ticket{}, util.NewFlowError(util.CodeInternal, "unknown request category", nil)
	}

	snap := s.settings.Get()
	route, err := domain.ResolveRoute(snap, category)
	if err != nil {
		s.metrics.RecordFlowError(string(util.CodeOf(err)))
		return domain.Ticket{}, err
	}

	key := openKey(requesterID, category)

	s.mu.Lock()
	if existing, ok := s.openIndex[key]; ok {
		s.mu.Unlock()
		if existing == pendingChannel {
			existing = ""
		}
		s.metrics.RecordFlowError(string(util.CodeDuplicateTicket))
		return domain.Ticket{}, util.NewDuplicateTicket(existing)
	}
	s.openIndex[key] = pendingChannel
	s.mu.Unlock()

	ticket, err := s.createTicket(ctx, snap, route, requesterID, requesterName, category)
	if err != nil {
		s.mu.Lock()
		delete(s.openIndex, key)
		s.mu.Unlock()
		s.metrics.RecordFlowError(string(util.CodeOf(err)))
		return domain.Ticket{}, err
	}

	s.mu.Lock()
	s.tickets[ticket.ChannelID] = ticket
	s.openIndex[key] = ticket.ChannelID
	s.mu.Unlock()

	s.postTicketContext(ctx, ticket, route)
	s.metrics.RecordOpened(string(category))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketOpened,
		ChannelID: ticket.ChannelID,
		Payload: events.TicketOpenedPayload{
			RequesterID: requesterID,
			Category:    category,
			Number:      ticket.Number,
		},
	})

	s.logger.Info("ticket opened",
		zap.String("channel_id", ticket.ChannelID),
		zap.String("requester_id", requesterID),
		zap.String("category", string(category)))
	return *ticket, nil
}

func (s *VerificationService) createTicket(ctx context.Context, snap domain.Settings, route domain.Route, requesterID, requesterName string, category domain.Category) (*domain.Ticket, error) {
	number, err := s.settings.NextTicketNumber(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	name := channelName(category, number, requesterName)
	topic := fmt.Sprintf("Verification request by %s | Type: %s | ID: %d | User ID: %s",
		requesterName, category.ChannelPrefix(), number, requesterID)

	overrides := []transport.PermissionOverride{
		{Target: transport.TargetEveryone, View: false},
		{Target: transport.TargetUser, ID: requesterID, View: true},
	}
	for _, roleID := range route.ReviewerRoles {
		overrides = append(overrides, transport.PermissionOverride{
			Target: transport.TargetRole, ID: roleID, View: true,
		})
	}

	channelID, err := s.gateway.CreateChannel(ctx, snap.TicketCategoryID, name, topic, overrides)
	if err != nil {
		s.logger.Error("channel creation failed",
			zap.String("requester_id", requesterID),
			zap.String("category", string(category)),
			zap.Error(err))
		return nil, util.NewChannelCreateFailed(err)
	}

	return &domain.Ticket{
		ChannelID:     channelID,
		Number:        number,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		Category:      category,
		State:         domain.TicketStateOpen,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// postTicketContext sends the routing message into the fresh channel:
// requester mention, category, reviewer pings, decision instructions.
// The ticket already exists, so a send failure is logged and tolerated.
func (s *VerificationService) postTicketContext(ctx context.Context, ticket *domain.Ticket, route domain.Route) {
	msg := transport.Message{
		Title: ticket.Category.Label(),
		Body: fmt.Sprintf("Requester: <@%s>\nRequest type: %s\nTicket: #%d\n\n"+
			"Reviewers: use `/approve [reason]` or `/deny [reason]` to decide this request.",
			ticket.RequesterID, ticket.Category.ChannelPrefix(), ticket.Number),
		Mentions: append([]string(nil), route.ReviewerRoles...),
	}
	if err := s.gateway.SendMessage(ctx, ticket.ChannelID, msg); err != nil {
		s.logger.Warn("failed to post ticket context",
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err))
	}
}

// Decide records the terminal outcome for the ticket living in channelID.
// Exactly one caller wins the Open -> Decided transition; concurrent or
// repeated calls observe ALREADY_DECIDED. After the transition commits,
// the role grant, requester notification, decision log, and teardown
// scheduling proceed asynchronously on a best-effort basis.
func (s *VerificationService) Decide(ctx context.Context, channelID, deciderID string, deciderRoles []string, isAdmin bool, outcome domain.Outcome, justification string) (domain.Ticket, error) {
	s.mu.Lock()
	ticket, ok := s.tickets[channelID]
	if !ok {
		s.mu.Unlock()
		s.metrics.RecordFlowError(string(util.CodeWrongChannel))
		return domain.Ticket{}, util.NewWrongChannel()
	}
	category := ticket.Category
	s.mu.Unlock()

	route, err := domain.ResolveRoute(s.settings.Get(), category)
	if err != nil {
		s.metrics.RecordFlowError(string(util.CodeOf(err)))
		return domain.Ticket{}, err
	}
	if !isAdmin && !route.Authorizes(deciderRoles) {
		s.metrics.RecordFlowError(string(util.CodeNotAuthorized))
		return domain.Ticket{}, util.NewNotAuthorized("you don't have permission to decide this request")
	}

	decision := &domain.Decision{
		DeciderID:     deciderID,
		Outcome:       outcome,
		Justification: justification,
		DecidedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	ticket, ok = s.tickets[channelID]
	if !ok {
		s.mu.Unlock()
		s.metrics.RecordFlowError(string(util.CodeWrongChannel))
		return domain.Ticket{}, util.NewWrongChannel()
	}
	if ticket.State != domain.TicketStateOpen {
		s.mu.Unlock()
		s.metrics.RecordFlowError(string(util.CodeAlreadyDecided))
		return domain.Ticket{}, util.NewAlreadyDecided(channelID)
	}
	ticket.State = domain.TicketStateDecided
	ticket.Decision = decision
	decided := *ticket
	s.mu.Unlock()

	s.metrics.RecordDecided(string(decided.Category), string(outcome))
	s.logger.Info("ticket decided",
		zap.String("channel_id", channelID),
		zap.String("decider_id", deciderID),
		zap.String("outcome", string(outcome)))

	go s.applyDecision(decided, route)

	return decided, nil
}

// applyDecision runs the post-decision side effects. Each is best-effort:
// a failure is logged and the remaining effects still run. The decision
// itself is never rolled back.
func (s *VerificationService) applyDecision(ticket domain.Ticket, route domain.Route) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if ticket.Decision.Outcome == domain.OutcomeApproved && route.GrantRole != "" {
		if err := s.gateway.GrantRole(ctx, ticket.RequesterID, route.GrantRole); err != nil {
			s.logger.Error("role grant failed",
				zap.String("channel_id", ticket.ChannelID),
				zap.String("requester_id", ticket.RequesterID),
				zap.String("role_id", route.GrantRole),
				zap.Error(err))
		}
	}

	s.notifyRequester(ctx, ticket)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketDecided,
		ChannelID: ticket.ChannelID,
		Payload:   events.TicketDecidedPayload{Record: decisionRecord(ticket)},
	})

	s.scheduler.Schedule(ticket.ChannelID, s.teardownDelay, func() {
		s.Teardown(ticket.ChannelID)
	})
}

// notifyRequester posts the outcome into the ticket channel. The message
// carries the outcome only; the justification stays out of every
// requester-visible surface.
func (s *VerificationService) notifyRequester(ctx context.Context, ticket domain.Ticket) {
	var title, body string
	switch ticket.Decision.Outcome {
	case domain.OutcomeApproved:
		title = "Request Approved"
		body = fmt.Sprintf("Your %s verification request has been approved!", ticket.Category.ChannelPrefix())
	default:
		title = "Request Denied"
		body = fmt.Sprintf("Your %s verification request has been denied.", ticket.Category.ChannelPrefix())
	}

	msg := transport.Message{
		Content:  fmt.Sprintf("<@%s>", ticket.RequesterID),
		Title:    title,
		Body:     body,
		Footer:   fmt.Sprintf("This channel will be deleted in %d seconds.", int(s.teardownDelay.Seconds())),
		Mentions: []string{ticket.RequesterID},
	}
	if err := s.gateway.SendMessage(ctx, ticket.ChannelID, msg); err != nil {
		s.logger.Warn("failed to notify requester",
			zap.String("channel_id", ticket.ChannelID),
			zap.Error(err))
	}
}

// Teardown deletes the ticket channel and discards the record. Only a
// Decided ticket can be torn down, and the pop under the lock guarantees a
// single deletion attempt no matter how often teardown fires. Deletion
// failure is logged; the record is discarded regardless.
func (s *VerificationService) Teardown(channelID string) {
	s.mu.Lock()
	ticket, ok := s.tickets[channelID]
	if !ok || ticket.State != domain.TicketStateDecided {
		s.mu.Unlock()
		return
	}
	ticket.State = domain.TicketStateClosed
	delete(s.tickets, channelID)
	delete(s.openIndex, openKey(ticket.RequesterID, ticket.Category))
	closed := *ticket
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	reason := fmt.Sprintf("verification %s", strings.ToLower(string(closed.Decision.Outcome)))
	deleted := true
	if err := s.gateway.DeleteChannel(ctx, channelID, reason); err != nil {
		deleted = false
		s.logger.Error("channel deletion failed",
			zap.String("channel_id", channelID),
			zap.Error(err))
	}

	s.metrics.RecordClosed()
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketClosed,
		ChannelID: channelID,
		Payload: events.TicketClosedPayload{
			RequesterID: closed.RequesterID,
			Category:    closed.Category,
			Deleted:     deleted,
		},
	})
	s.logger.Info("ticket closed", zap.String("channel_id", channelID), zap.Bool("deleted", deleted))
}

// Ticket returns a copy of the ticket living in channelID, if any.
func (s *VerificationService) Ticket(channelID string) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[channelID]
	if !ok {
		return domain.Ticket{}, false
	}
	return *ticket, true
}

// OpenTicketFor returns the channel id of the requester's open ticket in
// the given category, if one exists.
func (s *VerificationService) OpenTicketFor(requesterID string, category domain.Category) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	channelID, ok := s.openIndex[openKey(requesterID, category)]
	if !ok || channelID == pendingChannel {
		return "", false
	}
	return channelID, true
}

func (s *VerificationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func decisionRecord(ticket domain.Ticket) domain.DecisionRecord {
	return domain.DecisionRecord{
		ChannelID:     ticket.ChannelID,
		RequesterID:   ticket.RequesterID,
		RequesterName: ticket.RequesterName,
		Category:      ticket.Category,
		DeciderID:     ticket.Decision.DeciderID,
		Outcome:       ticket.Decision.Outcome,
		Justification: ticket.Decision.Justification,
		DecidedAt:     ticket.Decision.DecidedAt,
	}
}

func openKey(requesterID string, category domain.Category) string {
	return requesterID + "|" + string(category)
}

// channelName builds "<prefix>-<n>-<label>" from a sanitized requester
// name: lowercase, spaces to dashes, alphanumerics and dashes only,
// capped at 100 characters.
func channelName(category domain.Category, number int, requesterName string) string {
	label := strings.ToLower(strings.ReplaceAll(requesterName, " ", "-"))
	var b strings.Builder
	for _, r := range label {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	name := fmt.Sprintf("%s-%d-%s", category.ChannelPrefix(), number, b.String())
	name = strings.TrimSuffix(name, "-")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

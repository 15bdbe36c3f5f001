package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/domain"
	"github.com/spec-kit/gatekeeper/internal/events"
	"github.com/spec-kit/gatekeeper/internal/repository"
	"github.com/spec-kit/gatekeeper/internal/settings"
	"github.com/spec-kit/gatekeeper/internal/transport"
)

// DecisionLogService appends every decision, including the hidden
// justification, to the restricted log channel and, when a database is
// configured, to the append-only archive. Every failure is
// warn-and-continue: logging never blocks the decision flow.
type DecisionLogService struct {
	dispatcher events.Dispatcher
	gateway    transport.Gateway
	settings   *settings.Store
	archive    repository.DecisionRepository
	logger     *zap.Logger
}

// NewDecisionLogService creates the service. archive may be nil.
func NewDecisionLogService(dispatcher events.Dispatcher, gateway transport.Gateway, store *settings.Store, archive repository.DecisionRepository, logger *zap.Logger) *DecisionLogService {
	return &DecisionLogService{
		dispatcher: dispatcher,
		gateway:    gateway,
		settings:   store,
		archive:    archive,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to decision events.
func (d *DecisionLogService) RegisterHandlers() {
	if d.dispatcher == nil {
		return
	}
	d.dispatcher.Subscribe(events.EventTicketDecided, d.handleTicketDecided)
}

func (d *DecisionLogService) handleTicketDecided(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketDecidedPayload)
	if !ok {
		d.logger.Warn("unexpected payload on decision event", zap.String("event_id", event.ID))
		return nil
	}
	d.Log(ctx, payload.Record)
	return nil
}

// Log writes one decision record. Visibility of the log channel to the
// oversight role is a deployment-time permission concern, not enforced
// here.
func (d *DecisionLogService) Log(ctx context.Context, record domain.DecisionRecord) {
	logChannel := d.settings.Get().LogChannelID
	if logChannel == "" {
		d.logger.Warn("log channel not configured; decision not logged",
			zap.String("channel_id", record.ChannelID))
	} else if err := d.gateway.SendMessage(ctx, logChannel, formatDecision(record)); err != nil {
		d.logger.Warn("failed to post decision log entry",
			zap.String("log_channel_id", logChannel),
			zap.String("channel_id", record.ChannelID),
			zap.Error(err))
	}

	if d.archive == nil {
		return
	}
	if err := d.archive.Append(ctx, &record); err != nil {
		d.logger.Warn("failed to archive decision",
			zap.String("channel_id", record.ChannelID),
			zap.Error(err))
	}
}

func formatDecision(record domain.DecisionRecord) transport.Message {
	title := "Verification Denied"
	if record.Outcome == domain.OutcomeApproved {
		title = "Verification Approved"
	}
	return transport.Message{
		Title: title,
		Body: fmt.Sprintf("User: <@%s> (%s)\nType: %s\nReason: %s",
			record.RequesterID, record.RequesterName, record.Category.ChannelPrefix(), record.Justification),
		Footer: fmt.Sprintf("Decided by <@%s> at %s", record.DeciderID, record.DecidedAt.Format("2006-01-02 15:04:05 UTC")),
	}
}

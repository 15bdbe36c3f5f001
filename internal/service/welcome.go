package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/settings"
	"github.com/spec-kit/gatekeeper/internal/transport"
	"github.com/spec-kit/gatekeeper/pkg/util"
)

// WelcomeService posts the entry prompt: the configured welcome text plus
// the three selection buttons. Stateless beyond reading settings.
type WelcomeService struct {
	gateway  transport.Gateway
	settings *settings.Store
	logger   *zap.Logger
}

// NewWelcomeService creates the service.
func NewWelcomeService(gateway transport.Gateway, store *settings.Store, logger *zap.Logger) *WelcomeService {
	return &WelcomeService{gateway: gateway, settings: store, logger: logger}
}

// SelectionButtons returns the three durable entry controls.
func SelectionButtons() []transport.Button {
	return []transport.Button{
		{Label: "Resident", CustomID: transport.SelectionResident, Style: transport.StyleSuccess},
		{Label: "Visitor", CustomID: transport.SelectionVisitor, Style: transport.StylePrimary},
		{Label: "Emergency Embassy Request", CustomID: transport.SelectionEmbassy, Style: transport.StyleDanger},
	}
}

// Publish posts the welcome prompt to the configured entry channel,
// mentioning memberID when set (the member-join greeting). Fails with
// NOT_CONFIGURED when no entry channel is set.
func (w *WelcomeService) Publish(ctx context.Context, memberID string) error {
	snap := w.settings.Get()
	if snap.EntryChannelID == "" {
		return util.NewNotConfigured("entry channel")
	}

	msg := w.render(memberID)
	if err := w.gateway.SendMessage(ctx, snap.EntryChannelID, msg); err != nil {
		w.logger.Warn("failed to post welcome prompt",
			zap.String("entry_channel_id", snap.EntryChannelID),
			zap.Error(err))
		return util.NewInternalError(err)
	}
	return nil
}

// Preview renders the prompt for the invoking administrator without
// touching the entry channel.
func (w *WelcomeService) Preview() transport.Message {
	return w.render("")
}

func (w *WelcomeService) render(memberID string) transport.Message {
	snap := w.settings.Get()
	msg := transport.Message{
		Title:   snap.WelcomeTitle,
		Body:    snap.WelcomeBody,
		Buttons: SelectionButtons(),
	}
	if memberID != "" {
		msg.Content = fmt.Sprintf("<@%s>", memberID)
		msg.Mentions = []string{memberID}
	}
	return msg
}

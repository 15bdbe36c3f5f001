package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/domain"
	"github.com/spec-kit/gatekeeper/internal/transport"
	"github.com/spec-kit/gatekeeper/internal/transport/transporttest"
	"github.com/spec-kit/gatekeeper/pkg/util"
)

func TestPublishPostsPromptWithSelectionButtons(t *testing.T) {
	gw := transporttest.New()
	store := seedSettings(t, func(s *domain.Settings) {
		s.WelcomeTitle = "Welcome to the gates"
		s.WelcomeBody = "Pick your status."
	})
	svc := NewWelcomeService(gw, store, zap.NewNop())

	require.NoError(t, svc.Publish(context.Background(), "user-1"))

	msgs := gw.MessagesTo("chan-entry")
	require.Len(t, msgs, 1)
	msg := msgs[0].Message
	assert.Equal(t, "Welcome to the gates", msg.Title)
	assert.Equal(t, "Pick your status.", msg.Body)
	assert.Contains(t, msg.Content, "user-1")

	ids := make([]string, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		ids = append(ids, b.CustomID)
	}
	assert.ElementsMatch(t, ids, []string{
		transport.SelectionResident,
		transport.SelectionVisitor,
		transport.SelectionEmbassy,
	})
}

func TestPublishWithoutMemberMention(t *testing.T) {
	gw := transporttest.New()
	svc := NewWelcomeService(gw, seedSettings(t, nil), zap.NewNop())

	require.NoError(t, svc.Publish(context.Background(), ""))

	msgs := gw.MessagesTo("chan-entry")
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].Message.Content)
	assert.Empty(t, msgs[0].Message.Mentions)
}

func TestPublishFailsWhenEntryChannelUnset(t *testing.T) {
	gw := transporttest.New()
	store := seedSettings(t, func(s *domain.Settings) { s.EntryChannelID = "" })
	svc := NewWelcomeService(gw, store, zap.NewNop())

	err := svc.Publish(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, util.CodeNotConfigured, util.CodeOf(err))
	assert.Empty(t, gw.Messages())
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	gw := transporttest.New()
	svc := NewWelcomeService(gw, seedSettings(t, nil), zap.NewNop())

	preview := svc.Preview()
	assert.NotEmpty(t, preview.Title)
	assert.Len(t, preview.Buttons, 3)
	assert.Empty(t, gw.Messages(), "preview must not post anywhere")
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/domain"
	"github.com/spec-kit/gatekeeper/internal/events"
	"github.com/spec-kit/gatekeeper/internal/transport/transporttest"
)

func sampleRecord() domain.DecisionRecord {
	return domain.DecisionRecord{
		ChannelID:     "chan-5",
		RequesterID:   "user-1",
		RequesterName: "jane",
		Category:      domain.CategoryVisitor,
		DeciderID:     "mod-1",
		Outcome:       domain.OutcomeApproved,
		Justification: "papers in order",
		DecidedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

type recordingArchive struct {
	records []domain.DecisionRecord
	err     error
}

func (a *recordingArchive) Append(ctx context.Context, record *domain.DecisionRecord) error {
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, *record)
	return nil
}

func TestLogWritesJustificationToLogChannel(t *testing.T) {
	gw := transporttest.New()
	store := seedSettings(t, nil)
	svc := NewDecisionLogService(nil, gw, store, nil, zap.NewNop())

	svc.Log(context.Background(), sampleRecord())

	msgs := gw.MessagesTo("chan-log")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Message.Title, "Approved")
	assert.Contains(t, msgs[0].Message.Body, "papers in order")
	assert.Contains(t, msgs[0].Message.Body, "<@user-1>")
	assert.Contains(t, msgs[0].Message.Footer, "<@mod-1>")
}

func TestLogNoopsWhenChannelUnconfigured(t *testing.T) {
	gw := transporttest.New()
	store := seedSettings(t, func(s *domain.Settings) { s.LogChannelID = "" })
	svc := NewDecisionLogService(nil, gw, store, nil, zap.NewNop())

	svc.Log(context.Background(), sampleRecord())
	assert.Empty(t, gw.Messages())
}

func TestLogToleratesSendFailure(t *testing.T) {
	gw := transporttest.New()
	gw.SendErr = errors.New("missing permission")
	store := seedSettings(t, nil)
	archive := &recordingArchive{}
	svc := NewDecisionLogService(nil, gw, store, archive, zap.NewNop())

	svc.Log(context.Background(), sampleRecord())

	// The archive still receives the record.
	require.Len(t, archive.records, 1)
	assert.Equal(t, "papers in order", archive.records[0].Justification)
}

func TestLogToleratesArchiveFailure(t *testing.T) {
	gw := transporttest.New()
	store := seedSettings(t, nil)
	svc := NewDecisionLogService(nil, gw, store, &recordingArchive{err: errors.New("db down")}, zap.NewNop())

	svc.Log(context.Background(), sampleRecord())
	assert.Len(t, gw.MessagesTo("chan-log"), 1)
}

func TestHandlerSubscribesToDecisionEvents(t *testing.T) {
	gw := transporttest.New()
	store := seedSettings(t, nil)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewDecisionLogService(dispatcher, gw, store, nil, zap.NewNop())
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      events.EventTicketDecided,
		ChannelID: "chan-5",
		Payload:   events.TicketDecidedPayload{Record: sampleRecord()},
	})
	require.NoError(t, err)
	assert.Len(t, gw.MessagesTo("chan-log"), 1)
}

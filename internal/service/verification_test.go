package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/gatekeeper/internal/domain"
	"github.com/spec-kit/gatekeeper/internal/observability"
	"github.com/spec-kit/gatekeeper/internal/persistence"
	"github.com/spec-kit/gatekeeper/internal/settings"
	"github.com/spec-kit/gatekeeper/internal/transport/transporttest"
	"github.com/spec-kit/gatekeeper/pkg/util"
)

func seedSettings(t *testing.T, mutate func(*domain.Settings)) *settings.Store {
	t.Helper()
	doc := domain.DefaultSettings()
	doc.EntryChannelID = "chan-entry"
	doc.TicketCategoryID = "cat-tickets"
	doc.LogChannelID = "chan-log"
	doc.Roles = domain.RoleSettings{
		Resident:          "role-resident",
		Visitor:           "role-visitor",
		BorderAuthority:   "role-border",
		ForeignMinister:   "role-minister",
		HeadOfState:       "role-head",
		DeputyHeadOfState: "role-deputy",
		Oversight:         "role-oversight",
	}
	if mutate != nil {
		mutate(&doc)
	}

	backend := persistence.NewMemoryStore()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, backend.Save(context.Background(), data))

	store, err := settings.NewStore(context.Background(), backend, zap.NewNop())
	require.NoError(t, err)
	return store
}

func newEngine(t *testing.T, gw *transporttest.FakeGateway, store *settings.Store, delay time.Duration) *VerificationService {
	t.Helper()
	scheduler := NewScheduler()
	t.Cleanup(scheduler.Stop)
	return NewVerificationService(VerificationDependencies{
		Gateway:       gw,
		Settings:      store,
		Scheduler:     scheduler,
		Metrics:       observability.NewMetrics(),
		Logger:        zap.NewNop(),
		TeardownDelay: delay,
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestOpenCreatesIsolatedChannel(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)

	ticket, err := engine.Open(context.Background(), "user-1", "Jane Doe", domain.CategoryResident)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Equal(t, "user-1", ticket.RequesterID)

	created := gw.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "cat-tickets", created[0].Location)
	assert.Equal(t, "resident-1-jane-doe", created[0].Name)

	var everyoneHidden, requesterVisible, reviewerVisible bool
	for _, o := range created[0].Overrides {
		switch {
		case o.Target == "everyone" && !o.View:
			everyoneHidden = true
		case o.Target == "user" && o.ID == "user-1" && o.View:
			requesterVisible = true
		case o.Target == "role" && o.ID == "role-border" && o.View:
			reviewerVisible = true
		}
	}
	assert.True(t, everyoneHidden, "everyone must be denied view")
	assert.True(t, requesterVisible, "requester must be allowed view")
	assert.True(t, reviewerVisible, "reviewer role must be allowed view")

	msgs := gw.MessagesTo(ticket.ChannelID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Message.Body, "<@user-1>")
	assert.Contains(t, msgs[0].Message.Mentions, "role-border")
}

func TestOpenDuplicateIsRejectedWithoutSecondChannel(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)
	ctx := context.Background()

	first, err := engine.Open(ctx, "user-1", "jane", domain.CategoryVisitor)
	require.NoError(t, err)

	_, err = engine.Open(ctx, "user-1", "jane", domain.CategoryVisitor)
	require.Error(t, err)
	assert.Equal(t, util.CodeDuplicateTicket, util.CodeOf(err))
	assert.Equal(t, first.ChannelID, util.Detail(err, "channel_id"))
	assert.Len(t, gw.Created(), 1)

	// A different category is a different ticket.
	_, err = engine.Open(ctx, "user-1", "jane", domain.CategoryResident)
	require.NoError(t, err)
	assert.Len(t, gw.Created(), 2)
}

func TestOpenConcurrentRequestsProduceOneTicket(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Open(context.Background(), "user-1", "jane", domain.CategoryResident)
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case util.IsCode(err, util.CodeDuplicateTicket):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, duplicates)
	assert.Len(t, gw.Created(), 1)
}

func TestOpenFailsFastWhenRoleUnset(t *testing.T) {
	gw := transporttest.New()
	store := seedSettings(t, func(s *domain.Settings) { s.Roles.Resident = "" })
	engine := newEngine(t, gw, store, time.Hour)

	_, err := engine.Open(context.Background(), "user-1", "jane", domain.CategoryResident)
	require.Error(t, err)
	assert.Equal(t, util.CodeNotConfigured, util.CodeOf(err))
	assert.Empty(t, gw.Created())
	_, open := engine.OpenTicketFor("user-1", domain.CategoryResident)
	assert.False(t, open)
}

func TestOpenChannelCreateFailureRetainsNothing(t *testing.T) {
	gw := transporttest.New()
	gw.CreateErr = errors.New("missing permission")
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)
	ctx := context.Background()

	_, err := engine.Open(ctx, "user-1", "jane", domain.CategoryResident)
	require.Error(t, err)
	assert.Equal(t, util.CodeChannelCreateFailed, util.CodeOf(err))
	_, open := engine.OpenTicketFor("user-1", domain.CategoryResident)
	assert.False(t, open)

	// The reservation is released; a retry succeeds once the gateway recovers.
	gw.CreateErr = nil
	_, err = engine.Open(ctx, "user-1", "jane", domain.CategoryResident)
	require.NoError(t, err)
}

func TestDecideApprovalGrantsRoleOnce(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)
	ctx := context.Background()

	ticket, err := engine.Open(ctx, "user-1", "jane", domain.CategoryVisitor)
	require.NoError(t, err)

	decided, err := engine.Decide(ctx, ticket.ChannelID, "mod-1", []string{"role-border"}, false, domain.OutcomeApproved, "papers in order")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateDecided, decided.State)
	require.NotNil(t, decided.Decision)
	assert.Equal(t, "mod-1", decided.Decision.DeciderID)

	waitFor(t, func() bool { return len(gw.Grants()) == 1 })
	grants := gw.Grants()
	assert.Equal(t, "user-1", grants[0].UserID)
	assert.Equal(t, "role-visitor", grants[0].RoleID)

	waitFor(t, func() bool { return len(gw.MessagesTo(ticket.ChannelID)) == 2 })
	assert.False(t, gw.ContainsText("papers in order"),
		"justification must never reach requester-visible output")
}

func TestDecideDenialGrantsNothing(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)
	ctx := context.Background()

	ticket, err := engine.Open(ctx, "user-1", "jane", domain.CategoryResident)
	require.NoError(t, err)

	_, err = engine.Decide(ctx, ticket.ChannelID, "mod-1", []string{"role-border"}, false, domain.OutcomeDenied, "forged papers")
	require.NoError(t, err)

	waitFor(t, func() bool { return len(gw.MessagesTo(ticket.ChannelID)) == 2 })
	assert.Empty(t, gw.Grants())

	outcome := gw.MessagesTo(ticket.ChannelID)[1].Message
	assert.Contains(t, outcome.Body, "denied")
	assert.NotContains(t, outcome.Body, "forged papers")
}

func TestDecideRejectsUnauthorizedReviewer(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)
	ctx := context.Background()

	ticket, err := engine.Open(ctx, "user-2", "bob", domain.CategoryVisitor)
	require.NoError(t, err)

	_, err = engine.Decide(ctx, ticket.ChannelID, "mod-1", []string{"role-minister"}, false, domain.OutcomeApproved, "ok")
	require.Error(t, err)
	assert.Equal(t, util.CodeNotAuthorized, util.CodeOf(err))

	current, found := engine.Ticket(ticket.ChannelID)
	require.True(t, found)
	assert.Equal(t, domain.TicketStateOpen, current.State)
	assert.Empty(t, gw.Grants())
}

func TestDecideAdminBypassesReviewerCheck(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)
	ctx := context.Background()

	ticket, err := engine.Open(ctx, "user-1", "jane", domain.CategoryEmbassy)
	require.NoError(t, err)

	decided, err := engine.Decide(ctx, ticket.ChannelID, "admin-1", nil, true, domain.OutcomeApproved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateDecided, decided.State)

	// Embassy approvals confer no role.
	waitFor(t, func() bool { return len(gw.MessagesTo(ticket.ChannelID)) == 2 })
	assert.Empty(t, gw.Grants())
}

func TestDecideConcurrentCallsHaveOneWinner(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)
	ctx := context.Background()

	ticket, err := engine.Open(ctx, "user-1", "jane", domain.CategoryResident)
	require.NoError(t, err)

	outcomes := []domain.Outcome{
		domain.OutcomeApproved, domain.OutcomeDenied,
		domain.OutcomeApproved, domain.OutcomeDenied,
		domain.OutcomeApproved, domain.OutcomeDenied,
		domain.OutcomeApproved, domain.OutcomeDenied,
	}
	var wg sync.WaitGroup
	winners := make([]*domain.Outcome, len(outcomes))
	errs := make([]error, len(outcomes))
	for i, outcome := range outcomes {
		wg.Add(1)
		go func(i int, outcome domain.Outcome) {
			defer wg.Done()
			decided, err := engine.Decide(ctx, ticket.ChannelID, "mod-1", []string{"role-border"}, false, outcome, "")
			errs[i] = err
			if err == nil {
				winners[i] = &decided.Decision.Outcome
			}
		}(i, outcome)
	}
	wg.Wait()

	var winnerOutcome *domain.Outcome
	var losses int
	for i := range outcomes {
		if errs[i] == nil {
			require.Nil(t, winnerOutcome, "expected exactly one winner")
			winnerOutcome = winners[i]
			continue
		}
		assert.Equal(t, util.CodeAlreadyDecided, util.CodeOf(errs[i]))
		losses++
	}
	require.NotNil(t, winnerOutcome)
	assert.Equal(t, len(outcomes)-1, losses)

	stored, found := engine.Ticket(ticket.ChannelID)
	require.True(t, found)
	assert.Equal(t, *winnerOutcome, stored.Decision.Outcome)
}

func TestDecideInUnknownChannel(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)

	_, err := engine.Decide(context.Background(), "chan-nope", "mod-1", []string{"role-border"}, false, domain.OutcomeApproved, "")
	require.Error(t, err)
	assert.Equal(t, util.CodeWrongChannel, util.CodeOf(err))
}

func TestTeardownDeletesChannelExactlyOnce(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), 20*time.Millisecond)
	ctx := context.Background()

	ticket, err := engine.Open(ctx, "user-1", "jane", domain.CategoryVisitor)
	require.NoError(t, err)
	_, err = engine.Decide(ctx, ticket.ChannelID, "mod-1", []string{"role-border"}, false, domain.OutcomeApproved, "")
	require.NoError(t, err)

	waitFor(t, func() bool { return len(gw.Deletions()) == 1 })
	assert.Equal(t, ticket.ChannelID, gw.Deletions()[0].ChannelID)

	_, found := engine.Ticket(ticket.ChannelID)
	assert.False(t, found, "record must be discarded after teardown")
	_, open := engine.OpenTicketFor("user-1", domain.CategoryVisitor)
	assert.False(t, open)

	// Redundant teardown invocations are no-ops.
	engine.Teardown(ticket.ChannelID)
	engine.Teardown(ticket.ChannelID)
	assert.Len(t, gw.Deletions(), 1)
}

func TestTeardownDiscardsRecordEvenWhenDeleteFails(t *testing.T) {
	gw := transporttest.New()
	gw.DeleteErr = errors.New("already gone")
	engine := newEngine(t, gw, seedSettings(t, nil), 10*time.Millisecond)
	ctx := context.Background()

	ticket, err := engine.Open(ctx, "user-1", "jane", domain.CategoryResident)
	require.NoError(t, err)
	_, err = engine.Decide(ctx, ticket.ChannelID, "mod-1", []string{"role-border"}, false, domain.OutcomeDenied, "")
	require.NoError(t, err)

	waitFor(t, func() bool {
		_, found := engine.Ticket(ticket.ChannelID)
		return !found
	})
}

func TestTeardownIgnoresOpenTickets(t *testing.T) {
	gw := transporttest.New()
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)

	ticket, err := engine.Open(context.Background(), "user-1", "jane", domain.CategoryResident)
	require.NoError(t, err)

	engine.Teardown(ticket.ChannelID)
	assert.Empty(t, gw.Deletions())
	current, found := engine.Ticket(ticket.ChannelID)
	require.True(t, found)
	assert.Equal(t, domain.TicketStateOpen, current.State)
}

func TestGrantFailureDoesNotBlockNotification(t *testing.T) {
	gw := transporttest.New()
	gw.GrantErr = errors.New("role hierarchy")
	engine := newEngine(t, gw, seedSettings(t, nil), time.Hour)
	ctx := context.Background()

	ticket, err := engine.Open(ctx, "user-1", "jane", domain.CategoryResident)
	require.NoError(t, err)
	decided, err := engine.Decide(ctx, ticket.ChannelID, "mod-1", []string{"role-border"}, false, domain.OutcomeApproved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateDecided, decided.State)

	waitFor(t, func() bool { return len(gw.MessagesTo(ticket.ChannelID)) == 2 })
	outcome := gw.MessagesTo(ticket.ChannelID)[1].Message
	assert.Contains(t, strings.ToLower(outcome.Body), "approved")
}

func TestChannelNameSanitization(t *testing.T) {
	tests := []struct {
		name     string
		category domain.Category
		number   int
		input    string
		want     string
	}{
		{"plain", domain.CategoryResident, 3, "jane", "resident-3-jane"},
		{"spaces and case", domain.CategoryVisitor, 12, "Jane Q Doe", "visitor-12-jane-q-doe"},
		{"symbols stripped", domain.CategoryEmbassy, 1, "j@ne!#doe", "embassy-1-jnedoe"},
		{"all symbols", domain.CategoryResident, 2, "!!!", "resident-2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, channelName(tc.category, tc.number, tc.input))
		})
	}
}

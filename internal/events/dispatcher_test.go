package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribersOfMatchingType(t *testing.T) {
	d := NewInMemoryDispatcher()

	var opened, decided int
	d.Subscribe(EventTicketOpened, func(ctx context.Context, e Event) error {
		opened++
		return nil
	})
	d.Subscribe(EventTicketDecided, func(ctx context.Context, e Event) error {
		decided++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketOpened}))
	assert.Equal(t, 1, opened)
	assert.Equal(t, 0, decided)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	d := NewInMemoryDispatcher()
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketClosed}))
}

func TestHandlerErrorDoesNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher()

	var reached bool
	d.Subscribe(EventTicketDecided, func(ctx context.Context, e Event) error {
		return errors.New("handler failure")
	})
	d.Subscribe(EventTicketDecided, func(ctx context.Context, e Event) error {
		reached = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketDecided}))
	assert.True(t, reached)
}

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherInvokesSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var got []Event
	d.Subscribe(EventMemberRegistered, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	event := Event{ID: "evt-1", Type: EventMemberRegistered, Timestamp: time.Now()}
	require.NoError(t, d.Publish(context.Background(), event))

	require.Len(t, got, 1)
	assert.Equal(t, "evt-1", got[0].ID)
}

func TestDispatcherLogsFailingHandlerAndContinues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	var secondRan bool
	d.Subscribe(EventSessionCompleted, func(context.Context, Event) error {
		return errors.New("handler broke")
	})
	d.Subscribe(EventSessionCompleted, func(context.Context, Event) error {
		secondRan = true
		return nil
	})

	event := Event{ID: "evt-2", Type: EventSessionCompleted, Timestamp: time.Now()}
	require.NoError(t, d.Publish(context.Background(), event))

	assert.True(t, secondRan)
	entries := logs.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "evt-2", entries[0].ContextMap()["event_id"])
}

func TestDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	require.NoError(t, d.Publish(context.Background(), Event{
		ID:   "evt-3",
		Type: EventMemberRegistered,
	}))
}

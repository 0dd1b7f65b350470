package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/chartflow/pkg/eventbus"
	"github.com/carebridge/chartflow/pkg/events"
)

func newChannelBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	channel := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(channel, channel)

	t.Cleanup(func() {
		if err := bus.Close(); err != nil {
			t.Logf("Failed to close event bus: %v", err)
		}
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	bus := newChannelBus(t)
	ctx := context.Background()

	var (
		mu       sync.Mutex
		received []*events.StepCompleted
	)

	err := bus.Handle(events.StepCompletedEvent, func(_ context.Context, event interface{}) error {
		stepEvent, ok := event.(*events.StepCompleted)
		require.True(t, ok)

		mu.Lock()
		received = append(received, stepEvent)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	published := events.StepCompleted{
		BaseEvent:      events.NewBaseEvent(events.StepCompletedEvent),
		WorkflowID:     "wf-1",
		StepID:         "assess",
		StepName:       "Initial Assessment",
		Auto:           true,
		CompletionRate: 50,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", published))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "wf-1", received[0].WorkflowID)
	assert.Equal(t, "assess", received[0].StepID)
	assert.Equal(t, 50, received[0].CompletionRate)
}

func TestWatermillEventBus_UnhandledEventTypeIsAcked(t *testing.T) {
	t.Parallel()

	bus := newChannelBus(t)
	ctx := context.Background()

	var handled sync.WaitGroup

	handled.Add(1)

	err := bus.Handle(events.RecordValidatedEvent, func(_ context.Context, _ interface{}) error {
		handled.Done()

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// An event type with no handler must not wedge the subscription.
	require.NoError(t, bus.Publish(ctx, "wf-1", events.WorkflowCreated{
		BaseEvent:  events.NewBaseEvent(events.WorkflowCreatedEvent),
		WorkflowID: "wf-1",
	}))

	require.NoError(t, bus.Publish(ctx, "ep-1", events.RecordValidated{
		BaseEvent: events.NewBaseEvent(events.RecordValidatedEvent),
		EpisodeID: "ep-1",
		Passed:    true,
	}))

	done := make(chan struct{})

	go func() {
		handled.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("record validated event was never handled")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := newChannelBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

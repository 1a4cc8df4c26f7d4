package eventbus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/otomato/pkg/channels/gochannel"
	"github.com/dukex/otomato/pkg/eventbus"
	"github.com/dukex/otomato/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan eventbus.Event, 2)
	keys := make(chan string, 2)
	handler := func(_ context.Context, key string, event eventbus.Event) error {
		keys <- key
		received <- event

		return nil
	}

	require.NoError(t, bus.Handle(events.WorkflowCreatedEvent, handler))
	require.NoError(t, bus.Handle(events.WorkflowRunEvent, handler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	created := events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, "wf-1"),
		Name:      "notify",
		State:     "created",
		Nodes:     2,
		Edges:     1,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", created))

	run := events.WorkflowStateChanged{
		BaseEvent:     events.NewBaseEvent(events.WorkflowRunEvent, "wf-1"),
		State:         "active",
		PreviousState: "created",
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", run))

	first := waitFor(t, received)
	gotCreated, ok := first.(*events.WorkflowCreated)
	require.True(t, ok, "got %T", first)
	assert.Equal(t, "notify", gotCreated.Name)
	assert.Equal(t, "wf-1", gotCreated.WorkflowID)
	assert.Equal(t, created.ID, gotCreated.ID)
	assert.Equal(t, "wf-1", <-keys)

	second := waitFor(t, received)
	gotRun, ok := second.(*events.WorkflowStateChanged)
	require.True(t, ok, "got %T", second)
	assert.Equal(t, events.WorkflowRunEvent, gotRun.GetType())
	assert.Equal(t, "active", gotRun.State)
}

func TestWatermillEventBus_UnhandledEventsAreAcked(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	done := make(chan error, 1)

	go func() {
		done <- bus.Publish(ctx, "wf-1", events.WorkflowDeleted{BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, "wf-1")})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on an unhandled event")
	}
}

func TestWatermillEventBus_HandlerErrorRedelivers(t *testing.T) {
	bus := newTestBus(t)

	attempts := make(chan struct{}, 4)
	calls := 0

	require.NoError(t, bus.Handle(events.EdgeDeletedEvent, func(_ context.Context, _ string, _ eventbus.Event) error {
		calls++
		attempts <- struct{}{}

		if calls == 1 {
			return errors.New("temporary")
		}

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))
	require.NoError(t, bus.Publish(ctx, "wf-1", events.EdgeDeleted{
		BaseEvent: events.NewBaseEvent(events.EdgeDeletedEvent, "wf-1"),
		EdgeID:    "e-1",
	}))

	waitFor(t, attempts)
	waitFor(t, attempts)
}

func TestWatermillEventBus_HandleUnknownType(t *testing.T) {
	bus := newTestBus(t)

	err := bus.Handle("workflow.exploded", func(context.Context, string, eventbus.Event) error { return nil })
	assert.ErrorIs(t, err, eventbus.ErrUnknownEventType)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	var zero T

	return zero
}

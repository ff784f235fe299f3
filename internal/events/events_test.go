package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventOperationQueued, func(ev *Event) error {
		received = append(received, ev)
		return nil
	})

	err := bus.PublishJSON(EventOperationQueued, OperationEventPayload{
		OperationID: 42,
		Type:        "reception",
	})
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, EventOperationQueued, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())

	var payload OperationEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &payload))
	assert.Equal(t, int64(42), payload.OperationID)
	assert.Equal(t, "reception", payload.Type)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	bus.Subscribe(EventConnectivityOnline, func(ev *Event) error {
		calls++
		return nil
	})
	bus.Subscribe(EventConnectivityOnline, func(ev *Event) error {
		calls++
		return errors.New("handler error is swallowed")
	})

	bus.Publish(&Event{Type: EventConnectivityOnline})
	assert.Equal(t, 2, calls)
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Publishing with nobody listening must not panic.
	bus.Publish(&Event{Type: EventSyncPassFinished})
}

func TestEventBusNilReceiver(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventOperationSynced, nil))
}

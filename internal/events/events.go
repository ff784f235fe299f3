package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventConnectivityOnline  = "connectivity_online"
	EventConnectivityOffline = "connectivity_offline"
	EventOperationQueued     = "operation_queued"
	EventOperationSynced     = "operation_synced"
	EventOperationFailed     = "operation_failed"
	EventSyncPassFinished    = "sync_pass_finished"
)

// OperationEventPayload describes the minimal operation snapshot for event
// consumers such as the status façade and metrics.
type OperationEventPayload struct {
	OperationID int64  `json:"operation_id"`
	Type        string `json:"type"`
	RetryCount  int    `json:"retry_count,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SyncPassEventPayload summarizes one completed sync pass.
type SyncPassEventPayload struct {
	PassID    string `json:"pass_id"`
	Attempted int    `json:"attempted"`
	Synced    int    `json:"synced"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

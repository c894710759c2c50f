package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventSnapshotRefreshed    EventType = "SNAPSHOT_REFRESHED"
	EventSnapshotStale        EventType = "SNAPSHOT_STALE"
	EventOpportunitiesUpdated EventType = "OPPORTUNITIES_UPDATED"
	EventAlertFired           EventType = "ALERT_FIRED"
	EventAlertSound           EventType = "ALERT_SOUND"
	EventError                EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers.
// Subscribers run in their own goroutines so a slow consumer never
// blocks the publisher.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishSnapshotRefreshed publishes a snapshot refresh event
func (eb *EventBus) PublishSnapshotRefreshed(itemCount int, fetchedAt time.Time) {
	eb.Publish(Event{
		Type: EventSnapshotRefreshed,
		Data: map[string]interface{}{
			"item_count": itemCount,
			"fetched_at": fetchedAt,
		},
	})
}

// PublishAlertFired publishes a price-drop alert event
func (eb *EventBus) PublishAlertFired(itemID int, name string, dropPercent float64, currentPrice int64) {
	eb.Publish(Event{
		Type: EventAlertFired,
		Data: map[string]interface{}{
			"item_id":       itemID,
			"name":          name,
			"drop_percent":  dropPercent,
			"current_price": currentPrice,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(component, message string) {
	eb.Publish(Event{
		Type: EventError,
		Data: map[string]interface{}{
			"component": component,
			"message":   message,
		},
	})
}

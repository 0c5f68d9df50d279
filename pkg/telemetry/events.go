package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event is one notification emitted by the recorder or the store.
type Event struct {
	// ID is generated on publish when left empty.
	ID string `json:"id"`

	// Timestamp is set on publish when left zero.
	Timestamp time.Time `json:"timestamp"`

	// Type is one of the EventType constants.
	Type string `json:"type"`

	// Source names the emitting component.
	Source string `json:"source"`

	// Function is the registered function name, when one applies.
	Function string `json:"function,omitempty"`

	// Store is the log database path, when one applies.
	Store string `json:"store,omitempty"`

	// Message is the human readable summary.
	Message string `json:"message"`

	// Level is one of the EventLevel constants.
	Level string `json:"level"`

	// Data carries event specific values.
	Data map[string]any `json:"data,omitempty"`
}

// Event types emitted by the recorder and the store.
const (
	EventTypeCallRecorded = "call.recorded"
	EventTypeWriteFailed  = "record.write_failed"
	EventTypeStoreRotated = "store.rotated"
)

// Event severity levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber handles delivered events.
type EventSubscriber func(event Event)

// EventFilter reports whether an event passes.
type EventFilter func(event Event) bool

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// EventPublisher fans events out to subscribers, either synchronously
// or through a buffered queue drained by a background goroutine. A
// disabled publisher accepts and discards everything.
type EventPublisher struct {
	config  EventsConfig
	buffer  chan Event
	dropped atomic.Int64

	mu          sync.RWMutex
	subscribers []subscriberEntry
	filters     []EventFilter

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewEventPublisher creates a publisher. With EnableAsync a single
// dispatch goroutine drains the queue; Shutdown stops it.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	ep := &EventPublisher{config: cfg}
	if !cfg.Enabled {
		return ep, nil
	}

	ep.buffer = make(chan Event, cfg.BufferSize)
	ep.ctx, ep.cancel = context.WithCancel(context.Background())

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.dispatch()
	}
	return ep, nil
}

// Publish delivers an event to matching subscribers. ID and Timestamp
// are filled in when missing. On a full queue the event is counted as
// dropped and an error returned.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if !ep.config.EnableAsync {
		ep.deliver(event)
		return nil
	}

	select {
	case ep.buffer <- event:
		return nil
	case <-ep.ctx.Done():
		return fmt.Errorf("event publisher stopped")
	default:
		ep.dropped.Add(1)
		return fmt.Errorf("event queue full, event dropped")
	}
}

// PublishCallRecorded reports a recorded call. Failed calls are raised
// to warning level so level filters can pick them out.
func (ep *EventPublisher) PublishCallRecorded(function, level, outcome string, duration time.Duration) error {
	eventLevel := EventLevelInfo
	if outcome != "success" {
		eventLevel = EventLevelWarning
	}
	return ep.Publish(Event{
		Type:     EventTypeCallRecorded,
		Source:   "recorder",
		Function: function,
		Message:  fmt.Sprintf("Call to %s recorded with level %s", function, level),
		Level:    eventLevel,
		Data: map[string]any{
			"level":    level,
			"outcome":  outcome,
			"duration": duration.Seconds(),
		},
	})
}

// PublishWriteFailed reports a call record that could not be persisted.
func (ep *EventPublisher) PublishWriteFailed(function, path, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeWriteFailed,
		Source:   "recorder",
		Function: function,
		Store:    path,
		Message:  fmt.Sprintf("Failed to persist record for %s: %s", function, reason),
		Level:    EventLevelError,
		Data: map[string]any{
			"reason": reason,
		},
	})
}

// PublishStoreRotated reports a rotation to the next log database file.
func (ep *EventPublisher) PublishStoreRotated(path string, index int64) error {
	return ep.Publish(Event{
		Type:    EventTypeStoreRotated,
		Source:  "store",
		Store:   path,
		Message: fmt.Sprintf("Log database rotated to %s (index %d)", path, index),
		Level:   EventLevelInfo,
		Data: map[string]any{
			"index": index,
		},
	})
}

// Subscribe registers a subscriber. A nil filter receives every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.subscribers = append(ep.subscribers, subscriberEntry{subscriber: subscriber, filter: filter})
}

// AddFilter registers a filter applied to every event before any
// subscriber sees it.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.filters = append(ep.filters, filter)
}

// Dropped reports how many events were discarded on a full queue.
func (ep *EventPublisher) Dropped() int64 {
	return ep.dropped.Load()
}

// dispatch drains the queue until Shutdown, then delivers whatever is
// still buffered.
func (ep *EventPublisher) dispatch() {
	defer ep.wg.Done()
	for {
		select {
		case event := <-ep.buffer:
			ep.deliver(event)
		case <-ep.ctx.Done():
			for {
				select {
				case event := <-ep.buffer:
					ep.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver hands one event to every subscriber whose filter passes.
// Subscribers run on their own goroutines and are waited on during
// Shutdown.
func (ep *EventPublisher) deliver(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		ep.wg.Add(1)
		go func() {
			defer ep.wg.Done()
			entry.subscriber(event)
		}()
	}
}

// Shutdown stops the dispatcher and waits for queued events and running
// subscribers, or gives up when the context expires.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timed out")
	}
}

// eventLevelRank orders severities for FilterByLevel.
var eventLevelRank = map[string]int{
	EventLevelInfo:    0,
	EventLevelWarning: 1,
	EventLevelError:   2,
}

// FilterByLevel passes events at minLevel or above.
func FilterByLevel(minLevel string) EventFilter {
	threshold := eventLevelRank[minLevel]
	return func(event Event) bool {
		return eventLevelRank[event.Level] >= threshold
	}
}

// FilterByType passes events matching one of the given types.
func FilterByType(types ...string) EventFilter {
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(event Event) bool {
		return allowed[event.Type]
	}
}

// FilterByFunction passes events for one registered function.
func FilterByFunction(name string) EventFilter {
	return func(event Event) bool {
		return event.Function == name
	}
}

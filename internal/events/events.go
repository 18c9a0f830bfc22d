// Package events provides event handling functionality
package events

import (
	"context"
	"sync"

	"github.com/celestiaorg/jobdesk/internal/logger"
)

// EventType represents the type of coordination event
type EventType string

const (
	// EventQueryCommitted is emitted when a new effective job query is committed
	EventQueryCommitted EventType = "query_committed"
	// EventPageLoaded is emitted when a job page response is accepted
	EventPageLoaded EventType = "page_loaded"
	// EventFetchFailed is emitted when the current job fetch fails
	EventFetchFailed EventType = "fetch_failed"
	// EventPhaseChanged is emitted on every proposal session transition
	EventPhaseChanged EventType = "phase_changed"
	// EventProposalApplied is emitted once a proposal becomes applied
	EventProposalApplied EventType = "proposal_applied"
	// EventChannelSize is the buffer size for the event channel
	EventChannelSize = 100
)

// Event represents a coordination event
type Event struct {
	Type   EventType // The type of event
	Seq    uint64    // Fetch sequence number, for job query events
	JobURL string    // The job URL, for proposal events
	From   string    // Previous phase, for phase changes
	To     string    // New phase, for phase changes
	Err    error     // The failure, when there is one
}

// Handler is a function that handles an event
type Handler func(context.Context, Event) error

// Bus fans events out to subscribed handlers. A nil *Bus discards events.
type Bus struct {
	handlers   map[EventType][]Handler
	handlersMu sync.RWMutex
	eventChan  chan Event
}

// NewBus creates a bus with a buffered event channel
func NewBus() *Bus {
	return &Bus{
		handlers:  make(map[EventType][]Handler),
		eventChan: make(chan Event, EventChannelSize),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.handlersMu.Lock()
	defer b.handlersMu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	logger.Debugf("Registered handler for event type: %s", eventType)
}

// Publish queues an event for processing. It never blocks; when the buffer
// is full the event is dropped.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	select {
	case b.eventChan <- event:
		logger.Debugf("Published event: %s", event.Type)
	default:
		logger.Warnf("Event buffer full, dropping event: %s", event.Type)
	}
}

// Start starts the event processing loop
func (b *Bus) Start(ctx context.Context) {
	go b.processEvents(ctx)
	logger.Debug("Started event processing loop")
}

// processEvents handles events in the background
func (b *Bus) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Stopping event processing loop")
			return
		case event := <-b.eventChan:
			b.handlersMu.RLock()
			eventHandlers := b.handlers[event.Type]
			b.handlersMu.RUnlock()

			// Handlers of one event run in order so subscribers observe
			// events in publication order
			for _, handler := range eventHandlers {
				if err := handler(ctx, event); err != nil {
					logger.Errorf("Failed to handle event %s: %v", event.Type, err)
				}
			}
		}
	}
}

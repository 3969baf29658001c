package application

import (
	"sync"

	"github.com/bnema/chatlink/internal/domain"
)

const defaultEventBuffer = 256

// EventBus is the single channel every session publishes onto. Publish
// order from one goroutine is preserved. After Close, Publish drops events
// instead of blocking.
type EventBus struct {
	events chan domain.Event
	done   chan struct{}
	once   sync.Once
}

func NewEventBus(buffer int) *EventBus {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &EventBus{
		events: make(chan domain.Event, buffer),
		done:   make(chan struct{}),
	}
}

func (b *EventBus) Publish(event domain.Event) bool {
	select {
	case <-b.done:
		return false
	default:
	}

	select {
	case b.events <- event:
		return true
	case <-b.done:
		return false
	}
}

func (b *EventBus) Events() <-chan domain.Event {
	return b.events
}

// Done is closed once the bus stops accepting events.
func (b *EventBus) Done() <-chan struct{} {
	return b.done
}

func (b *EventBus) Close() {
	b.once.Do(func() {
		close(b.done)
	})
}

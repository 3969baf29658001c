package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/bnema/chatlink/internal/syncx"
	"github.com/rs/zerolog"
)

// EventQueue is the ordered outcome stream handed to the consumer.
// Persistent message events are mirrored to an EventStore until dequeued.
type EventQueue struct {
	store   ports.EventStore
	timeout time.Duration
	logger  zerolog.Logger

	// access spans the memory and store halves of one operation. It is a
	// bounded wait; events and subscribers are additionally guarded by mu.
	access syncx.TimedMutex

	mu          sync.Mutex
	events      []domain.Event
	subscribers map[int]chan struct{}
	nextSub     int
}

func NewEventQueue(store ports.EventStore, lockTimeout time.Duration, logger zerolog.Logger) *EventQueue {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &EventQueue{
		store:       store,
		timeout:     lockTimeout,
		logger:      logger,
		subscribers: map[int]chan struct{}{},
	}
}

func (q *EventQueue) acquire(op string) func() {
	release, ok := q.access.Acquire(q.timeout)
	if !ok {
		q.logger.Warn().Str("op", op).Dur("timeout", q.timeout).Msg("queue lock wait timed out, proceeding without it")
	}
	return release
}

// Enqueue appends event and signals subscribers.
func (q *EventQueue) Enqueue(ctx context.Context, event domain.Event) {
	if event == nil {
		return
	}

	release := q.acquire("enqueue")
	if message, ok := event.(domain.MessageEvent); ok && message.Persist {
		q.persist(ctx, message)
	}
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()
	release()

	q.notify()
}

func (q *EventQueue) persist(ctx context.Context, message domain.MessageEvent) {
	if q.store == nil || message.ID == "" {
		return
	}
	for _, entry := range fragmentEntries(message.ID, message.Payload) {
		if err := q.store.Put(ctx, entry.Key, entry.Value); err != nil {
			q.logger.Error().Err(err).Str("id", message.ID).Msg("persist message event")
			if removeErr := q.store.Remove(ctx, message.ID); removeErr != nil {
				q.logger.Error().Err(removeErr).Str("id", message.ID).Msg("remove partial message event")
			}
			return
		}
	}
}

// Dequeue pops the oldest event. Its stored fragments, if any, are removed.
func (q *EventQueue) Dequeue(ctx context.Context) (domain.Event, bool) {
	release := q.acquire("dequeue")
	defer release()

	q.mu.Lock()
	if len(q.events) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	event := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	q.mu.Unlock()

	if message, ok := event.(domain.MessageEvent); ok && message.Persist && q.store != nil {
		if err := q.store.Remove(ctx, message.ID); err != nil {
			q.logger.Error().Err(err).Str("id", message.ID).Msg("remove dequeued message event")
		}
	}

	return event, true
}

// Restore loads message events persisted by an earlier process and queues
// them in their original order. Their entries stay in the store until the
// events are dequeued. It returns how many events were restored.
func (q *EventQueue) Restore(ctx context.Context) int {
	if q.store == nil {
		return 0
	}

	release := q.acquire("restore")
	entries, err := q.store.Entries(ctx)
	if err != nil {
		release()
		q.logger.Error().Err(err).Msg("read persisted events")
		return 0
	}

	messages, stale := reassemble(entries)
	for _, id := range stale {
		if err := q.store.Remove(ctx, id); err != nil {
			q.logger.Error().Err(err).Str("id", id).Msg("remove stale fragments")
		}
	}

	q.mu.Lock()
	for _, message := range messages {
		q.events = append(q.events, domain.MessageEvent{
			Meta:    domain.Meta{Persist: true},
			ID:      message.ID,
			Payload: message.Payload,
		})
	}
	q.mu.Unlock()
	release()

	if len(messages) == 0 {
		return 0
	}
	q.notify()
	q.logger.Info().Int("count", len(messages)).Msg("restored persisted events")
	return len(messages)
}

// Clear wipes the durable store only. Events in memory stay queued.
func (q *EventQueue) Clear(ctx context.Context) {
	if q.store == nil {
		return
	}
	release := q.acquire("clear")
	defer release()

	if err := q.store.Clear(ctx); err != nil {
		q.logger.Error().Err(err).Msg("clear persisted events")
	}
}

func (q *EventQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Snapshot copies the queued events in order without removing them.
func (q *EventQueue) Snapshot() []domain.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.Event(nil), q.events...)
}

// Subscribe returns a channel that receives a signal whenever events are
// available. Signals coalesce: one receive may stand for many events, so
// the consumer drains with Dequeue until it reports false. A subscriber
// registered while events are pending is signalled immediately.
func (q *EventQueue) Subscribe() (<-chan struct{}, func()) {
	signal := make(chan struct{}, 1)

	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subscribers[id] = signal
	pending := len(q.events) > 0
	q.mu.Unlock()

	if pending {
		signal <- struct{}{}
	}

	var once sync.Once
	return signal, func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subscribers, id)
			q.mu.Unlock()
		})
	}
}

func (q *EventQueue) notify() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, signal := range q.subscribers {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

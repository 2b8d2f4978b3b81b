package bus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/knyzorg/discord-game-manager/pkg/telemetry"
)

// Handler receives the payload published on a topic. Handlers run
// synchronously on the publisher's goroutine, in registration order.
type Handler func(payload any)

type entry struct {
	id uint64
	fn Handler
}

// EventBus is a topic-keyed pub/sub registry. Matching is exact: a
// subscriber to "message:admin" sees only publishes to "message:admin",
// never publishes to "message:*". Producers that want wildcard listeners
// notified publish both topics themselves (see Fanout).
type EventBus struct {
	mu     sync.RWMutex
	subs   map[Topic][]entry
	nextID uint64
	logger *slog.Logger
}

// Subscription is the handle returned by Subscribe. Cancelling it removes
// exactly that handler from exactly that topic.
type Subscription struct {
	bus   *EventBus
	topic Topic
	id    uint64
}

func New(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		subs:   make(map[Topic][]entry),
		logger: logger,
	}
}

// Subscribe registers fn on topic and returns a handle for removal.
// Malformed topics are rejected up front.
func (b *EventBus) Subscribe(topic Topic, fn Handler) (*Subscription, error) {
	if err := topic.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("bus: nil handler for topic %q", topic)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], entry{id: id, fn: fn})
	return &Subscription{bus: b, topic: topic, id: id}, nil
}

// Cancel removes the subscription. Safe to call more than once and safe
// on a nil subscription.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.subs[s.topic]
	for i, e := range entries {
		if e.id == s.id {
			b.subs[s.topic] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.subs[s.topic]) == 0 {
		delete(b.subs, s.topic)
	}
}

// Publish delivers payload to every handler currently subscribed to the
// exact topic, in registration order. A panicking handler is isolated so
// the remaining handlers still run. Publishing to a topic with no
// subscribers is a no-op.
func (b *EventBus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	entries := b.subs[topic]
	snapshot := make([]entry, len(entries))
	copy(snapshot, entries)
	b.mu.RUnlock()

	for _, e := range snapshot {
		b.invoke(topic, e, payload)
	}
	if len(snapshot) > 0 {
		telemetry.Metrics.EventsPublished.WithLabelValues(string(topic.Kind)).Inc()
	}
}

func (b *EventBus) invoke(topic Topic, e entry, payload any) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Metrics.HandlerPanics.WithLabelValues(string(topic.Kind)).Inc()
			b.logger.Error("bus: handler panicked",
				slog.String("topic", topic.String()),
				slog.Any("panic", r),
			)
		}
	}()
	e.fn(payload)
}

// Fanout publishes payload on the wildcard-qualified topic first, then on
// the exact subtopic. This is the producer-side fan-out convention: the
// bus does no wildcard matching of its own.
func (b *EventBus) Fanout(kind Kind, sub string, payload any) {
	b.Publish(Topic{Kind: kind, Sub: Wildcard}, payload)
	if sub != "" && sub != Wildcard {
		b.Publish(Topic{Kind: kind, Sub: sub}, payload)
	}
}

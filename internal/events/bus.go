package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Topic string

const (
	TopicSessionCreated  Topic = "session.created"
	TopicPromptAvailable Topic = "prompt.available"
	TopicReviewSubmitted Topic = "review.submitted"
	TopicContentReported Topic = "content.reported"
)

// Event is a notification about a mutation in the core. UserID is the user the
// event is addressed to, when there is one.
type Event struct {
	Topic      Topic     `json:"topic"`
	UserID     string    `json:"user_id,omitempty"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Handler func(ctx context.Context, e Event)

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) {}

// Bus fans events out to subscribers. Handlers run on their own goroutines so a
// slow subscriber never holds up the publisher.
type Bus struct {
	logger *zap.SugaredLogger

	mu       sync.RWMutex
	handlers map[Topic][]Handler
	all      []Handler
	closed   bool
	wg       sync.WaitGroup
}

func NewBus(logger *zap.SugaredLogger) *Bus {
	return &Bus{
		logger:   logger,
		handlers: make(map[Topic][]Handler),
	}
}

func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], h)
	b.mu.Unlock()
}

// SubscribeAll registers h for every topic.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	b.all = append(b.all, h)
	b.mu.Unlock()
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	// Handlers outlive the request that triggered them.
	ctx = context.WithoutCancel(ctx)
	for _, h := range b.handlers[e.Topic] {
		b.dispatch(ctx, h, e)
	}
	for _, h := range b.all {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Errorw("event handler panicked", "topic", e.Topic, "panic", r)
			}
		}()
		h(ctx, e)
	}()
}

// Close stops accepting events and waits for running handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

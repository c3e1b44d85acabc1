package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/dorandoran/user/internal/metrics"
)

// Publisher delivers events to their consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler consumes one event.
type Handler func(ctx context.Context, event Event) error

// Bus delivers events synchronously to in-process handlers.
// A failing or panicking handler is logged and does not stop the others.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   zerolog.Logger
}

// NewBus returns an empty Bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers h for every event published afterwards.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish runs each handler in registration order and never returns an error.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for i, h := range handlers {
		if err := b.dispatch(ctx, h, event); err != nil {
			b.logger.Error().Err(err).
				Str("event", event.EventType()).
				Int("handler", i).
				Msg("event handler failed")
		}
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, event)
}

// LogHandler writes each event to logger at info level.
func LogHandler(logger zerolog.Logger) Handler {
	return func(_ context.Context, event Event) error {
		logger.Info().
			Str("event", event.EventType()).
			Time("occurred_at", event.OccurredAt()).
			Msg("user event")
		return nil
	}
}

// Multi fans an event out to several publishers and joins their errors.
type Multi []Publisher

// Publish delivers event to every non-nil publisher, even after a failure.
func (m Multi) Publish(ctx context.Context, event Event) error {
	var result *multierror.Error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Instrumented counts publish outcomes for the wrapped publisher.
type Instrumented struct {
	Next Publisher
}

// Publish forwards to Next and records the outcome.
func (p Instrumented) Publish(ctx context.Context, event Event) error {
	err := p.Next.Publish(ctx, event)
	metrics.RecordEventPublished(event.EventType(), err)
	return err
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

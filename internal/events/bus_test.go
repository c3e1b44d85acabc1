package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dorandoran/user/internal/events"
)

func TestBusDeliversInOrderDespiteFailures(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRedisLoops)

	bus := events.NewBus(zerolog.Nop())
	var seen []string
	bus.Subscribe(func(_ context.Context, e events.Event) error {
		seen = append(seen, "first:"+e.EventType())
		return errors.New("first handler failed")
	})
	bus.Subscribe(func(_ context.Context, e events.Event) error {
		panic("second handler exploded")
	})
	bus.Subscribe(func(_ context.Context, e events.Event) error {
		seen = append(seen, "third:"+e.EventType())
		return nil
	})

	err := bus.Publish(context.Background(), events.UserCreated{UserID: uuid.New(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, []string{"first:user.created", "third:user.created"}, seen)
}

type recordingPublisher struct {
	got []events.Event
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("broker down")}

	err := events.Multi{ok, nil, bad}.Publish(context.Background(), events.UserDeleted{Email: "a@b.c"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, bad.got, 1)
}

func TestInstrumentedPassesThrough(t *testing.T) {
	inner := &recordingPublisher{}
	p := events.Instrumented{Next: inner}

	require.NoError(t, p.Publish(context.Background(), events.UserUpdated{}))
	assert.Len(t, inner.got, 1)
}

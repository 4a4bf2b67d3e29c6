package observability

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_Routing(t *testing.T) {
	b := NewBroadcaster(nil)

	all, cancelAll := b.Subscribe(All)
	defer cancelAll()
	one, cancelOne := b.Subscribe("a")
	defer cancelOne()
	assert.Equal(t, 2, b.Subscribers())

	b.Broadcast("a", "for a")
	b.Broadcast("b", "for b")

	assert.Equal(t, "for a", <-one)
	assert.Equal(t, "for a", <-all)
	assert.Equal(t, "for b", <-all)
	assert.Len(t, one, 0)
}

func TestBroadcaster_Removal(t *testing.T) {
	b := NewBroadcaster(nil)
	one, cancel := b.Subscribe("a")
	defer cancel()

	b.BroadcastRemoval("a")

	var got Removal
	require.NoError(t, json.Unmarshal([]byte(<-one), &got))
	assert.Equal(t, Removal{ID: "a", Removed: true}, got)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster(nil)
	ch, cancel := b.Subscribe("a")
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())

	b.Broadcast("a", "nobody listens")
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster(nil)
	ch, cancel := b.Subscribe(All)
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		b.Broadcast("a", "x")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBroadcaster_Hooks(t *testing.T) {
	b := NewBroadcaster(nil)
	ch, cancel := b.Subscribe("r1")
	defer cancel()

	req := &domain.EquationRequest{ID: "r1", State: domain.StateSolveInFlight, Latex: "x^2"}
	b.Hooks().OnTransition(context.Background(), &domain.TransitionEvent{To: domain.StateSolveInFlight, Request: req})

	var got domain.EquationRequest
	require.NoError(t, json.Unmarshal([]byte(<-ch), &got))
	assert.Equal(t, domain.RequestID("r1"), got.ID)
	assert.Equal(t, "x^2", got.Latex)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusFanOut(t *testing.T) {
	bus := NewEventBus()
	a, b := bus.Subscribe(), bus.Subscribe()

	bus.Publish(Event{Resource: "sessions", Action: "sequence", ID: "s1"})

	assert.Equal(t, "s1", (<-a).ID)
	assert.Equal(t, "s1", (<-b).ID)

	bus.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
	bus.Unsubscribe(b)
}

func TestEventBusDropsForSlowSubscribers(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	for i := 0; i < 20; i++ {
		bus.Publish(Event{Action: "sequence"})
	}
	assert.Len(t, ch, 16)
}

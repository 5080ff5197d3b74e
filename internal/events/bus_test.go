package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishToNamedSubscriber(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TaskCreated)

	bus.Publish(TaskCreated, "payload")

	select {
	case ev := <-ch:
		assert.Equal(t, TaskCreated, ev.Name)
		assert.Equal(t, "payload", ev.Payload)
		assert.False(t, ev.At.IsZero())
	default:
		t.Fatal("expected an event")
	}
}

func TestWildcardSubscriberSeesEverything(t *testing.T) {
	bus := NewBus()
	all := bus.Subscribe("")

	bus.Publish(TaskCreated, 1)
	bus.Publish(ProjectsFound, 2)

	require.Len(t, all, 2)
	assert.Equal(t, TaskCreated, (<-all).Name)
	assert.Equal(t, ProjectsFound, (<-all).Name)
}

func TestSubscriberOnlySeesItsName(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(ProjectCreated)

	bus.Publish(TaskCreated, nil)

	assert.Empty(t, ch)
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TaskCreated)

	// Overflow the subscriber buffer; extra events are dropped.
	for i := 0; i < 50; i++ {
		bus.Publish(TaskCreated, i)
	}

	assert.Len(t, ch, cap(ch))
}

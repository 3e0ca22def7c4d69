package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishReachesOnlyMatchingTopic(t *testing.T) {
	bus := NewBus()

	var orders, refunds int
	bus.Subscribe(TopicOrders, func(Topic) { orders++ })
	bus.Subscribe(TopicRefunds, func(Topic) { refunds++ })

	bus.Publish(TopicOrders)
	bus.Publish(TopicOrders)

	assert.Equal(t, 2, orders)
	assert.Zero(t, refunds)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsub := bus.Subscribe(TopicCatalog, func(Topic) { calls++ })

	bus.Publish(TopicCatalog)
	unsub()
	bus.Publish(TopicCatalog)

	assert.Equal(t, 1, calls)
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	var a, b bool
	bus.Subscribe(TopicState, func(Topic) { a = true })
	bus.Subscribe(TopicState, func(Topic) { b = true })

	bus.Publish(TopicState)
	assert.True(t, a)
	assert.True(t, b)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	// publishing to a quiet topic must not panic
	NewBus().Publish(TopicOwnership)
}

package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus wraps the underlying event bus behind an explicitly constructed
// handle. Callers hold the Bus they were given instead of reaching for
// a process-wide instance, and every Subscribe returns a Subscription
// that detaches exactly the handler it registered.
type Bus struct {
	bus evbus.Bus
}

// Subscription detaches one registered handler from its topic.
type Subscription struct {
	bus     evbus.Bus
	topic   string
	handler interface{}
}

// New creates an event bus.
func New() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish delivers an event to all current subscribers of the topic.
func (b *Bus) Publish(topic string, args ...interface{}) {
	b.bus.Publish(topic, args...)
}

// Subscribe registers a handler for a topic and returns its subscription.
func (b *Bus) Subscribe(topic string, fn interface{}) (*Subscription, error) {
	if err := b.bus.Subscribe(topic, fn); err != nil {
		return nil, err
	}
	return &Subscription{bus: b.bus, topic: topic, handler: fn}, nil
}

// SubscribeAsync registers a handler invoked on its own goroutine.
func (b *Bus) SubscribeAsync(topic string, fn interface{}) (*Subscription, error) {
	if err := b.bus.SubscribeAsync(topic, fn, false); err != nil {
		return nil, err
	}
	return &Subscription{bus: b.bus, topic: topic, handler: fn}, nil
}

// HasCallback reports whether any handler is registered for the topic.
func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}

// WaitAsync blocks until all in-flight async handlers have returned.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}

// Unsubscribe removes the handler this subscription registered. Safe to
// call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.handler == nil {
		return
	}
	_ = s.bus.Unsubscribe(s.topic, s.handler)
	s.handler = nil
}

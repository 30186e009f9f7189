package plm

import "sync"

// Handler receives inbound messages for a subscribed topic.
//
// Handlers are invoked from the client's callback workers and must not
// block for extended periods. A handler that needs to send a follow-up
// command must do so from its own goroutine.
type Handler func(Message)

// Registry routes inbound messages to subscribed handlers by Topic.
//
// The registry is owned by the transport client: every decoded inbound
// message is dispatched exactly once, to every live subscription for its
// topic. Subscriptions are identified by opaque handles rather than by
// handler identity, so the same function can be subscribed more than once
// and cancelled individually.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic]map[uint64]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[Topic]map[uint64]Handler),
	}
}

// Subscription is a handle to one registered interest. Cancel removes it;
// cancelling twice is a no-op.
type Subscription struct {
	registry *Registry
	topic    Topic
	id       uint64
	once     sync.Once
}

// Subscribe registers a handler for a topic and returns its handle.
func (r *Registry) Subscribe(topic Topic, handler Handler) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID

	if r.subs[topic] == nil {
		r.subs[topic] = make(map[uint64]Handler)
	}
	r.subs[topic][id] = handler

	return &Subscription{registry: r, topic: topic, id: id}
}

// Cancel removes the subscription from its registry.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.registry.mu.Lock()
		defer s.registry.mu.Unlock()

		handlers := s.registry.subs[s.topic]
		delete(handlers, s.id)
		if len(handlers) == 0 {
			delete(s.registry.subs, s.topic)
		}
	})
}

// Dispatch delivers a message to every subscription for its topic.
func (r *Registry) Dispatch(msg Message) {
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.subs[msg.Topic]))
	for _, h := range r.subs[msg.Topic] {
		handlers = append(handlers, h)
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

// SubscriberCount returns the number of live subscriptions for a topic.
func (r *Registry) SubscriberCount(topic Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[topic])
}

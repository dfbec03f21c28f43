// Package stream is an in-process change stream: the store publishes a
// fire-and-forget event after every successful insert or update to a
// watched table, and subscribers re-query rather than trusting any
// pushed row data (events deliberately carry no payload).
package stream

import "sync"

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

type Event struct {
	Table string
	Op    Op
}

type Handler func(Event)

type subscriber struct {
	keys    map[Event]bool
	handler Handler
}

type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*subscriber)}
}

// Subscribe registers handler for every (table, op) pair and returns a
// Subscription that must be closed when the consumer goes away.
func (b *Broker) Subscribe(tables []string, ops []Op, handler Handler) *Subscription {
	keys := make(map[Event]bool, len(tables)*len(ops))
	for _, table := range tables {
		for _, op := range ops {
			keys[Event{Table: table, Op: op}] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{keys: keys, handler: handler}

	return &Subscription{broker: b, id: id}
}

// Publish delivers event to every matching subscriber. Handlers run on
// the caller's goroutine; they are expected to be cheap (typically just
// scheduling a rebuild).
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.keys[event] {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

type Subscription struct {
	broker *Broker
	once   sync.Once
	id     int
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.id)
		s.broker.mu.Unlock()
	})
}

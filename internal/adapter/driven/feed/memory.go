// Package feed implements the ChangeFeed port: an in-process broker for
// single-node deployments and tests, and a Redis pub/sub broker for
// multi-instance fan-out.
package feed

import (
	"context"
	"sync"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChangeFeed = (*Memory)(nil)

// subscriberBuffer bounds the per-subscription event queue. A subscriber that
// falls this far behind starts dropping its oldest pending events; the
// synchronizer recovers via its corrective refresh path.
const subscriberBuffer = 64

// Memory is an in-process ChangeFeed. Each subscription drains its own
// buffered queue on a dedicated goroutine, so handlers for one subscription
// run serially and in publish order while Publish never blocks on a slow
// consumer.
type Memory struct {
	mu   sync.RWMutex
	subs map[subKey]map[*memorySub]struct{}
}

type subKey struct {
	ownerID string
	kind    model.EventKind
}

// NewMemory creates an empty in-process change feed.
func NewMemory() *Memory {
	return &Memory{subs: make(map[subKey]map[*memorySub]struct{})}
}

// PublishCreated delivers a full-row created event to this owner's created
// subscribers.
func (m *Memory) PublishCreated(_ context.Context, b model.Bookmark) error {
	m.publish(subKey{ownerID: b.OwnerID, kind: model.EventCreated}, model.CreatedEvent(b))
	return nil
}

// PublishDeleted delivers a key-only deleted event to this owner's deleted
// subscribers.
func (m *Memory) PublishDeleted(_ context.Context, ownerID, id string) error {
	m.publish(subKey{ownerID: ownerID, kind: model.EventDeleted}, model.DeletedEvent(ownerID, id))
	return nil
}

// SubscribeCreated registers a handler for created events for one owner.
func (m *Memory) SubscribeCreated(ownerID string, handler func(model.Bookmark)) (driven.Subscription, error) {
	return m.subscribe(
		subKey{ownerID: ownerID, kind: model.EventCreated},
		func(ev model.Event) { handler(ev.Bookmark) },
	), nil
}

// SubscribeDeleted registers a handler for deleted events for one owner.
func (m *Memory) SubscribeDeleted(ownerID string, handler func(id string)) (driven.Subscription, error) {
	return m.subscribe(
		subKey{ownerID: ownerID, kind: model.EventDeleted},
		func(ev model.Event) { handler(ev.ID) },
	), nil
}

func (m *Memory) publish(key subKey, ev model.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for sub := range m.subs[key] {
		sub.enqueue(ev)
	}
}

func (m *Memory) subscribe(key subKey, handler func(model.Event)) *memorySub {
	sub := &memorySub{
		feed:    m,
		key:     key,
		handler: handler,
		queue:   make(chan model.Event, subscriberBuffer),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	if m.subs[key] == nil {
		m.subs[key] = make(map[*memorySub]struct{})
	}
	m.subs[key][sub] = struct{}{}
	m.mu.Unlock()

	go sub.drain()

	return sub
}

func (m *Memory) remove(sub *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if set, ok := m.subs[sub.key]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(m.subs, sub.key)
		}
	}
}

// memorySub is one active subscription on a Memory feed.
type memorySub struct {
	feed    *Memory
	key     subKey
	handler func(model.Event)
	queue   chan model.Event
	done    chan struct{}
	once    sync.Once
}

func (s *memorySub) enqueue(ev model.Event) {
	select {
	case <-s.done:
	case s.queue <- ev:
	default:
		// Queue full: drop the oldest pending event to make room so the
		// subscriber keeps seeing recent activity.
		select {
		case <-s.queue:
		default:
		}
		select {
		case s.queue <- ev:
		case <-s.done:
		default:
		}
	}
}

func (s *memorySub) drain() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			s.handler(ev)
		}
	}
}

// Close stops delivery and unregisters the subscription. Safe to call twice.
func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.feed.remove(s)
		close(s.done)
	})
	return nil
}

package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBuffer = 16

// FormStatusUpdated is emitted after a form record changes status, upload or
// data. Subscribers use it to refresh progress without polling.
type FormStatusUpdated struct {
	TenantID      string    `json:"tenantId"`
	ApplicationID string    `json:"applicationId"`
	EmployeeID    string    `json:"employeeId"`
	FormKey       string    `json:"formKey"`
	Status        string    `json:"status"`
	Percentage    int       `json:"percentage"`
	At            time.Time `json:"at"`
}

// Publisher is what the onboarding service depends on.
type Publisher interface {
	Publish(ctx context.Context, event FormStatusUpdated)
}

// Filter narrows a subscription. Empty fields match everything.
type Filter struct {
	TenantID   string
	EmployeeID string
}

func (f Filter) matches(event FormStatusUpdated) bool {
	if f.TenantID != "" && f.TenantID != event.TenantID {
		return false
	}
	if f.EmployeeID != "" && f.EmployeeID != event.EmployeeID {
		return false
	}
	return true
}

type Subscription struct {
	id     uint64
	filter Filter
	ch     chan FormStatusUpdated
	broker *Broker
	once   sync.Once
}

// C delivers events published after Subscribe returned.
func (s *Subscription) C() <-chan FormStatusUpdated {
	return s.ch
}

// Close removes the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s.id)
	})
}

// Broker fans events out to in-process subscribers. Delivery is at most once
// and never blocks the publisher: a subscriber with a full buffer misses the
// event. Nothing is replayed to late subscribers.
type Broker struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	dropped atomic.Int64

	Observer Observer
}

// Observer is told about every delivery attempt.
type Observer interface {
	ObserveEvent(dropped bool)
}

func NewBroker() *Broker {
	return &Broker{subs: map[uint64]*Subscription{}}
}

func (b *Broker) Subscribe(filter Filter, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		filter: filter,
		ch:     make(chan FormStatusUpdated, buffer),
		broker: b,
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Broker) Publish(_ context.Context, event FormStatusUpdated) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
			b.observe(false)
		default:
			b.dropped.Add(1)
			b.observe(true)
			slog.Warn("form status event dropped", "subscriber", sub.id, "form_key", event.FormKey, "employee_id", event.EmployeeID)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped counts events skipped because a subscriber buffer was full.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Broker) observe(dropped bool) {
	if b.Observer != nil {
		b.Observer.ObserveEvent(dropped)
	}
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}

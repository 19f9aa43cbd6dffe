package events

import (
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

const (
	TopicBasketChanged    = "basket:changed"
	TopicBasketCompleted  = "basket:completed"
	TopicItemAdded        = "basket:itemAdded"
	TopicItemRemoved      = "basket:itemRemoved"
	TopicPaymentCompleted = "payment:completed"
	TopicOrderCompleted   = "order:completed"
	TopicOrderFailed      = "order:failed"
)

// Event is a single notification. BasketID scopes it to one session's basket.
type Event struct {
	Topic    string    `json:"topic"`
	BasketID string    `json:"basket_id"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}

type ItemEvent struct {
	Item domain.Item `json:"item"`
}

type PaymentEvent struct {
	Payment domain.PaymentMethod `json:"payment"`
	Address string               `json:"address"`
}

type OrderCompletedEvent struct {
	Confirmation domain.Confirmation   `json:"confirmation"`
	Snapshot     domain.BasketSnapshot `json:"snapshot"`
}

type OrderFailedEvent struct {
	Error string `json:"error"`
}

type Handler func(Event)

// Publisher is what state owners need to announce transitions.
type Publisher interface {
	Publish(e Event)
}

type subscription struct {
	id      uint64
	topic   string
	handler Handler
}

// Bus delivers events synchronously, in publish order, to subscribers in
// registration order. An empty topic subscribes to everything.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for topic and returns a function removing it.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, topic: topic, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers h for every topic.
func (b *Bus) SubscribeAll(h Handler) func() {
	return b.Subscribe("", h)
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	// handlers may subscribe or publish themselves, so run them unlocked
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.topic == "" || s.topic == e.Topic {
			targets = append(targets, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(e)
	}
}
